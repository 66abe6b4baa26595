package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kopano7/Lejone-wings-cafe/internal/domain"
)

// Product form keys as sent by the UI.
const (
	fieldName         = "Product_Name"
	fieldCategory     = "Category"
	fieldPrice        = "Price"
	fieldQuantity     = "Quantity"
	fieldMinimumStock = "Minimum_Stock"
	fieldImage        = "Image"
	fileImage         = "image"
)

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

func isMultipart(r *http.Request) bool {
	return mediaType(r) == "multipart/form-data"
}

// parseProductFields reads product input from a multipart form (with an
// optional image file), a url-encoded form or a JSON object. Keys that are
// absent stay nil so updates leave those fields alone.
func (a *API) parseProductFields(r *http.Request) (domain.ProductFields, error) {
	switch mediaType(r) {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(a.uploads.maxBytes); err != nil {
			return domain.ProductFields{}, bodyError(err, "invalid multipart form")
		}
		fields := fieldsFromValues(r.MultipartForm.Value)
		ref, err := a.saveImage(r)
		if err != nil {
			return domain.ProductFields{}, err
		}
		if ref != "" {
			fields.Image = &ref
		}
		return fields, nil
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return domain.ProductFields{}, bodyError(err, "invalid form body")
		}
		return fieldsFromValues(r.PostForm), nil
	default:
		body, err := decodeObject(r)
		if err != nil {
			return domain.ProductFields{}, err
		}
		return domain.ProductFields{
			Name:         textOf(body[fieldName]),
			Category:     textOf(body[fieldCategory]),
			Price:        textOf(body[fieldPrice]),
			Quantity:     textOf(body[fieldQuantity]),
			MinimumStock: textOf(body[fieldMinimumStock]),
			Image:        textOf(body[fieldImage]),
		}, nil
	}
}

func (a *API) saveImage(r *http.Request) (string, error) {
	file, header, err := r.FormFile(fileImage)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	defer file.Close()

	return a.uploads.save(file, header.Filename)
}

func fieldsFromValues(values url.Values) domain.ProductFields {
	return domain.ProductFields{
		Name:         formValue(values, fieldName),
		Category:     formValue(values, fieldCategory),
		Price:        formValue(values, fieldPrice),
		Quantity:     formValue(values, fieldQuantity),
		MinimumStock: formValue(values, fieldMinimumStock),
	}
}

func formValue(values url.Values, key string) *string {
	if _, ok := values[key]; !ok {
		return nil
	}
	v := values.Get(key)
	return &v
}

// decodeObject reads a JSON object body. An empty body is an empty object.
func decodeObject(r *http.Request) (map[string]any, error) {
	body := make(map[string]any)
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return body, nil
		}
		return nil, bodyError(err, "invalid JSON body")
	}
	return body, nil
}

// decodeMovement reads {Product_Code, Type, Quantity, Note}; Quantity may be
// a number or a numeric string.
func decodeMovement(r *http.Request) (domain.MovementRequest, error) {
	body, err := decodeObject(r)
	if err != nil {
		return domain.MovementRequest{}, err
	}
	return domain.MovementRequest{
		ProductCode: valueOrEmpty(textOf(body["Product_Code"])),
		Type:        valueOrEmpty(textOf(body["Type"])),
		Quantity:    valueOrEmpty(textOf(body["Quantity"])),
		Note:        valueOrEmpty(textOf(body["Note"])),
	}, nil
}

// textOf renders a decoded JSON scalar as raw input text. null and missing
// keys yield nil.
func textOf(v any) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s = x
	case json.Number:
		s = x.String()
	case bool:
		s = strconv.FormatBool(x)
	default:
		return nil
	}
	return &s
}

func valueOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func bodyError(err error, fallback string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errors.New("request body too large")
	}
	return errors.New(fallback)
}

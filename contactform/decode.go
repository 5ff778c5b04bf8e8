package contactform

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"contact-gateway/contactform/domain"
)

// decodeSubmission lê JSON ou formulário (urlencoded/multipart).
// Em erro devolve o status HTTP adequado.
func decodeSubmission(w http.ResponseWriter, r *http.Request, maxBytes int64) (domain.SubmissionPayload, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	var p domain.SubmissionPayload
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch ct {
	case "application/json":
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&p); err != nil {
			return p, statusForBodyError(err, http.StatusBadRequest), fmt.Errorf("decode json: %w", err)
		}
		return p, 0, nil

	case "application/x-www-form-urlencoded", "multipart/form-data":
		var err error
		if ct == "multipart/form-data" {
			err = r.ParseMultipartForm(maxBytes)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			return p, statusForBodyError(err, http.StatusBadRequest), fmt.Errorf("parse form: %w", err)
		}
		p.Name = r.PostFormValue("name")
		p.Email = r.PostFormValue("email")
		p.Phone = r.PostFormValue("phone")
		p.County = r.PostFormValue("county")
		p.City = r.PostFormValue("city")
		p.PropertyType = r.PostFormValue("propertyType")
		p.Message = r.PostFormValue("message")
		p.Honeypot = r.PostFormValue("website")
		p.FormToken = r.PostFormValue("formToken")
		return p, 0, nil

	default:
		return p, http.StatusUnsupportedMediaType, fmt.Errorf("unsupported content type %q", ct)
	}
}

func statusForBodyError(err error, fallback int) int {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge
	}
	return fallback
}

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/diagnosis/formrelay/internal/submission"
)

var errBodyTooLarge = errors.New("request body too large")

// requestView is a FormView over one inbound request. It reads the posted
// fields and keeps what the controller showed so the handler can render it.
type requestView struct {
	values map[string]string

	busy    bool
	errMsg  string
	success *submission.Success
}

// newRequestView reads a form-encoded, multipart or JSON body of at most
// maxBytes.
func newRequestView(w http.ResponseWriter, r *http.Request, maxBytes int64) (*requestView, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		values map[string]string
		err    error
	)
	switch mediaType {
	case "application/json":
		values, err = decodeJSON(r.Body)
	case "multipart/form-data":
		if err = r.ParseMultipartForm(maxBytes); err == nil {
			values = firstValues(r.MultipartForm.Value)
		}
	default:
		if err = r.ParseForm(); err == nil {
			values = firstValues(r.PostForm)
		}
	}
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, errBodyTooLarge
		}
		return nil, err
	}
	return &requestView{values: values}, nil
}

func firstValues(form map[string][]string) map[string]string {
	out := make(map[string]string, len(form))
	for k, vs := range form {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}

func decodeJSON(body io.Reader) (map[string]string, error) {
	var raw map[string]interface{}
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case bool:
			if val {
				out[k] = "true"
			}
		case json.Number:
			out[k] = val.String()
		default:
			return nil, fmt.Errorf("field %q must be a string", k)
		}
	}
	return out, nil
}

func (v *requestView) Field(name string) string { return v.values[name] }

// Checked follows browser checkbox semantics: present and not a false value.
func (v *requestView) Checked(name string) bool {
	val := strings.TrimSpace(v.values[name])
	if val == "" || strings.EqualFold(val, "off") {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

func (v *requestView) SetBusy(busy bool)    { v.busy = busy }
func (v *requestView) ShowError(msg string) { v.errMsg = msg }

func (v *requestView) ShowSuccess(s submission.Success) {
	v.success = &s
	if s.ResetFields {
		v.values = map[string]string{}
	}
}

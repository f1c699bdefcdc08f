package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-enricher/internal/model"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

var usernamePattern = regexp.MustCompile(`^[a-z0-9._]{1,30}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("ig_username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// usernameRequest starts work for a username.
type usernameRequest struct {
	Username    string `json:"username" validate:"required,ig_username"`
	ExternalURL string `json:"external_url" validate:"omitempty,max=2048"`
	Async       bool   `json:"async"`

	ExternalURLAlias string `json:"externalUrl" validate:"-"`
}

func (r *usernameRequest) normalize() {
	r.Username = model.NormalizeUsername(r.Username)
	if r.ExternalURL == "" {
		r.ExternalURL = r.ExternalURLAlias
	}
	r.ExternalURL = strings.TrimSpace(r.ExternalURL)
}

// stageRequest runs one stage on an existing lead. The camelCase aliases
// accept payloads from older clients.
type stageRequest struct {
	LeadID      string `json:"lead_id" validate:"required,max=64"`
	ExternalURL string `json:"external_url" validate:"omitempty,max=2048"`

	LeadIDAlias      string `json:"leadId" validate:"-"`
	ExternalURLAlias string `json:"externalUrl" validate:"-"`
}

func (r *stageRequest) normalize() {
	if r.LeadID == "" {
		r.LeadID = r.LeadIDAlias
	}
	if r.ExternalURL == "" {
		r.ExternalURL = r.ExternalURLAlias
	}
	r.LeadID = strings.TrimSpace(r.LeadID)
	r.ExternalURL = strings.TrimSpace(r.ExternalURL)
}

type normalizer interface {
	normalize()
}

// decode reads, normalizes and validates a JSON body into dst.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst normalizer) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return eris.Wrap(err, "invalid request body")
	}
	dst.normalize()
	if err := s.validate.Struct(dst); err != nil {
		return validationMessage(err)
	}
	return nil
}

func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "ig_username":
			msgs = append(msgs, fe.Field()+" is not a valid instagram username")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return eris.New(strings.Join(msgs, "; "))
}

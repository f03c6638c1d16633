package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

var validate = validator.New()

// QueryParams is accepted both as a JSON body and as query string (?q=...&top_k=...).
type QueryParams struct {
	Question string `json:"question" query:"q" validate:"required"`
	TopK     int    `json:"top_k" query:"top_k" validate:"gte=0,lte=100"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *QueryParams) Validate() map[string]string {
	if err := validate.Struct(params); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return map[string]string{"request": err.Error()}
		}
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

type AskResponse struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
}

// Source is a retrieval result stripped of its chunk text.
type Source struct {
	SourceFile string  `json:"source_file"`
	Score      float64 `json:"score"`
}

package dto

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Documents are accepted either formatted or digits-only; the service
// strips formatting before storage.
var (
	cpfRe  = regexp.MustCompile(`^(\d{3}\.\d{3}\.\d{3}-\d{2}|\d{11})$`)
	cnpjRe = regexp.MustCompile(`^(\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}|\d{14})$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("cpf_cnpj", validateCPFCNPJ)
	}
}

// validateCPFCNPJ accepts a CPF or a CNPJ, formatted or bare.
func validateCPFCNPJ(fl validator.FieldLevel) bool {
	doc := fl.Field().String()
	return cpfRe.MatchString(doc) || cnpjRe.MatchString(doc)
}

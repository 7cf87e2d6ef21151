package handler

import (
	"errors"
	"net/http"
	"reflect"

	"recipestock/internal/apierror"
	"recipestock/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string, len(ves))
		for _, fe := range ves {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// pathID parses the named path parameter as a UUID.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service errors onto HTTP statuses. Storage failures are
// logged here and reported as retryable without exposing internals.
func respondError(c *gin.Context, err error) {
	var (
		ve *service.ValidationError
		nf *service.NotFoundError
		is *service.InsufficientStockError
		pe *service.PersistenceError
	)
	switch {
	case errors.As(err, &is):
		c.JSON(http.StatusConflict, apierror.NewStock(is.Error(), is.Shortfalls))
	case errors.As(err, &ve):
		if len(ve.Fields) > 0 {
			c.JSON(http.StatusUnprocessableEntity, apierror.NewValidationDetail(ve.Error(), ve.Fields))
			return
		}
		c.JSON(http.StatusBadRequest, apierror.New(ve.Error()))
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, apierror.New(nf.Error()))
	case errors.Is(err, service.ErrRecipeLocked), errors.Is(err, service.ErrDuplicateCategory):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.As(err, &pe):
		log.Error().Err(err).Str("path", c.FullPath()).Msg("storage failure")
		c.JSON(http.StatusServiceUnavailable, apierror.New("storage temporarily unavailable, try again"))
	default:
		_ = c.Error(err)
	}
}

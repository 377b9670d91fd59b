package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/statspub/dataapi/dataapi"
	"github.com/statspub/dataapi/dataapi/criteria"
)

func statusFor(kind dataapi.ErrorKind) int {
	switch kind {
	case dataapi.ErrTypeMismatch, dataapi.ErrQueryRejected:
		return http.StatusBadRequest
	case dataapi.ErrNotFound:
		return http.StatusNotFound
	case dataapi.ErrImmutable:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// asAPIError lifts criteria decode failures and unclassified errors into a
// *dataapi.Error.
func asAPIError(err error) *dataapi.Error {
	var de *dataapi.Error
	if errors.As(err, &de) {
		return de
	}
	var ce *criteria.Error
	if errors.As(err, &ce) {
		if ce.TypeMismatch {
			return dataapi.TypeMismatch(ce.Field, ce.Message)
		}
		return dataapi.QueryRejected(ce.Field, ce.Message)
	}
	return dataapi.Wrap(dataapi.ErrIO, "request failed", err)
}

func writeError(c *gin.Context, err error) {
	apiErr := asAPIError(err)
	status := statusFor(apiErr.Kind)

	body := gin.H{"error": apiErr.Message, "kind": apiErr.Kind}
	if apiErr.Field != "" {
		body["field"] = apiErr.Field
	}
	if status >= http.StatusInternalServerError {
		// Driver detail goes to the request log only.
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

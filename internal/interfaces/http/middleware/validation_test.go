package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kitchenledger/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineRequest struct {
	ProductID string          `json:"product_id" binding:"required,uuid"`
	Quantity  decimal.Decimal `json:"quantity" binding:"decimal_gt0"`
	Cost      decimal.Decimal `json:"cost" binding:"decimal_gte0"`
}

type docRequest struct {
	WarehouseID string        `json:"warehouse_id" binding:"required,uuid"`
	Type        string        `json:"type" binding:"required,oneof=arrival writeoff"`
	Lines       []lineRequest `json:"lines" binding:"required,min=1,dive"`
}

func validationRouter() *gin.Engine {
	SetupValidator()
	r := newTestRouter(RequestID())
	r.POST("/test", func(c *gin.Context) {
		var req docRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(req.Lines[0].Quantity))
	})
	return r
}

func postJSON(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestSetupValidator_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		SetupValidator()
		SetupValidator()
	})
}

func TestValidation_AcceptsDecimals(t *testing.T) {
	r := validationRouter()
	w := postJSON(r, `{
		"warehouse_id": "6f1c1f8e-4a7e-4b6b-9a36-1d2b1c7b0a01",
		"type": "arrival",
		"lines": [{"product_id": "0d4f7a52-0f4f-4b85-9a4e-5b6f1c0f2a11", "quantity": "2.5", "cost": 0}]
	}`)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"2.5"`)
}

func TestValidation_ReportsFields(t *testing.T) {
	r := validationRouter()

	tests := []struct {
		name  string
		body  string
		field string
		tag   string
	}{
		{
			name:  "missing warehouse",
			body:  `{"type":"arrival","lines":[{"product_id":"0d4f7a52-0f4f-4b85-9a4e-5b6f1c0f2a11","quantity":"1"}]}`,
			field: "warehouse_id",
			tag:   "required",
		},
		{
			name:  "unknown type",
			body:  `{"warehouse_id":"6f1c1f8e-4a7e-4b6b-9a36-1d2b1c7b0a01","type":"gift","lines":[{"product_id":"0d4f7a52-0f4f-4b85-9a4e-5b6f1c0f2a11","quantity":"1"}]}`,
			field: "type",
			tag:   "oneof",
		},
		{
			name:  "zero quantity",
			body:  `{"warehouse_id":"6f1c1f8e-4a7e-4b6b-9a36-1d2b1c7b0a01","type":"arrival","lines":[{"product_id":"0d4f7a52-0f4f-4b85-9a4e-5b6f1c0f2a11","quantity":"0"}]}`,
			field: "quantity",
			tag:   "decimal_gt0",
		},
		{
			name:  "negative cost",
			body:  `{"warehouse_id":"6f1c1f8e-4a7e-4b6b-9a36-1d2b1c7b0a01","type":"arrival","lines":[{"product_id":"0d4f7a52-0f4f-4b85-9a4e-5b6f1c0f2a11","quantity":"1","cost":"-1"}]}`,
			field: "cost",
			tag:   "decimal_gte0",
		},
		{
			name:  "no lines",
			body:  `{"warehouse_id":"6f1c1f8e-4a7e-4b6b-9a36-1d2b1c7b0a01","type":"arrival","lines":[]}`,
			field: "lines",
			tag:   "min",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(r, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			info := decodeError(t, w)
			assert.Equal(t, dto.ErrCodeValidation, info.Code)
			assert.NotEmpty(t, info.RequestID)
			require.NotEmpty(t, info.Details)
			assert.Equal(t, tt.field, info.Details[0].Field)
			assert.Equal(t, tt.tag, info.Details[0].Code)
		})
	}
}

func TestValidation_MalformedJSON(t *testing.T) {
	w := postJSON(validationRouter(), `{"warehouse_id":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	info := decodeError(t, w)
	assert.Equal(t, dto.ErrCodeValidation, info.Code)
	assert.Empty(t, info.Details)
	assert.Contains(t, info.Message, "Invalid request body")
}

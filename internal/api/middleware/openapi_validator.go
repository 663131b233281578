package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"go.uber.org/zap"

	"clustermap.io/clustermap/internal/api/openapi"
	"clustermap.io/clustermap/internal/pkg/logger"
)

const openAPIResponseValidationMessage = "response does not conform to OpenAPI contract"

// contractError is the body written when the validator itself rejects a
// request or replaces a response.
type contractError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MustOpenAPIValidator creates an OpenAPI runtime validator middleware and panics on setup failure.
func MustOpenAPIValidator(basePath string) gin.HandlerFunc {
	mw, err := NewOpenAPIValidator(basePath)
	if err != nil {
		panic(fmt.Sprintf("init openapi validator: %v", err))
	}
	return mw
}

// NewOpenAPIValidator validates requests and responses under basePath against
// the embedded API contract. Requests the contract does not describe, by path
// or by method, are left to gin's router.
func NewOpenAPIValidator(basePath string) (gin.HandlerFunc, error) {
	doc, err := openapi.Load()
	if err != nil {
		return nil, err
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("create openapi router: %w", err)
	}
	v := &contractValidator{router: router, basePath: "/" + strings.Trim(basePath, "/ ")}
	if v.basePath == "/" {
		v.basePath = ""
	}
	return v.handle, nil
}

type contractValidator struct {
	router   routers.Router
	basePath string
}

func (v *contractValidator) handle(c *gin.Context) {
	reqInput, ok := v.match(c.Request)
	if !ok {
		c.Next()
		return
	}
	if err := openapi3filter.ValidateRequest(c.Request.Context(), reqInput); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, contractError{
			Code:    "OPENAPI_REQUEST_INVALID",
			Message: err.Error(),
		})
		return
	}

	buffered := newBufferedResponseWriter(c.Writer)
	c.Writer = buffered
	// Restored on panic too, so Recovery writes to the real writer.
	defer func() { c.Writer = buffered.ResponseWriter }()
	c.Next()

	respInput := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: reqInput,
		Status:                 buffered.Status(),
		Header:                 buffered.Header(),
	}
	if buffered.body.Len() > 0 {
		respInput.SetBodyBytes(buffered.body.Bytes())
	}

	if err := openapi3filter.ValidateResponse(c.Request.Context(), respInput); err != nil {
		logger.Error("OpenAPI response validation failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", buffered.Status()),
			zap.Error(err),
		)
		buffered.replace(http.StatusInternalServerError, contractError{
			Code:    "OPENAPI_RESPONSE_INVALID",
			Message: openAPIResponseValidationMessage,
		})
	}

	if err := buffered.flush(); err != nil {
		logger.Warn("failed to flush buffered response",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
}

// match finds the contract operation for req. The contract's paths are
// relative to basePath; req itself is not modified.
func (v *contractValidator) match(req *http.Request) (*openapi3filter.RequestValidationInput, bool) {
	path, ok := contractPath(v.basePath, req.URL.Path)
	if !ok {
		return nil, false
	}
	u := *req.URL
	u.Path, u.RawPath = path, ""
	routed := *req
	routed.URL = &u

	route, pathParams, err := v.router.FindRoute(&routed)
	if err != nil {
		return nil, false
	}
	return &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			// Bearer tokens are checked by JWTAuth on the reload route.
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}, true
}

// contractPath returns path relative to basePath, or false when path lies
// outside it.
func contractPath(basePath, path string) (string, bool) {
	if basePath == "" {
		return path, true
	}
	if path == basePath {
		return "/", true
	}
	rel, ok := strings.CutPrefix(path, basePath+"/")
	if !ok {
		return "", false
	}
	return "/" + rel, true
}

// bufferedResponseWriter holds the handler's response until it has been
// validated.
type bufferedResponseWriter struct {
	gin.ResponseWriter
	body        bytes.Buffer
	statusCode  int
	wroteHeader bool
}

func newBufferedResponseWriter(w gin.ResponseWriter) *bufferedResponseWriter {
	return &bufferedResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (w *bufferedResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.statusCode = code
	w.wroteHeader = true
}

func (w *bufferedResponseWriter) WriteHeaderNow() {
	w.wroteHeader = true
}

func (w *bufferedResponseWriter) Write(data []byte) (int, error) {
	w.wroteHeader = true
	return w.body.Write(data)
}

func (w *bufferedResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *bufferedResponseWriter) Status() int { return w.statusCode }

func (w *bufferedResponseWriter) Size() int { return w.body.Len() }

func (w *bufferedResponseWriter) Written() bool { return w.wroteHeader }

func (w *bufferedResponseWriter) replace(status int, body contractError) {
	w.statusCode = status
	w.wroteHeader = true
	w.body.Reset()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := (render.JSON{Data: body}).Render(w); err != nil {
		logger.Warn("failed to render contract error", zap.Error(err))
	}
}

func (w *bufferedResponseWriter) flush() error {
	w.ResponseWriter.WriteHeader(w.statusCode)
	if w.body.Len() == 0 {
		return nil
	}
	_, err := w.ResponseWriter.Write(w.body.Bytes())
	return err
}

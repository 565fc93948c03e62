package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	zlog "github.com/rs/zerolog/log"

	"github.com/phenrril/orderdesk/internal/adapters/importer"
	"github.com/phenrril/orderdesk/internal/composer"
	"github.com/phenrril/orderdesk/internal/domain"
	"github.com/phenrril/orderdesk/internal/usecase"
)

const maxUploadBytes = 32 << 20

type Config struct {
	// JWTSecret enables bearer token checks on every route but /health.
	JWTSecret    []byte
	CORSOrigins  []string
	RateLimitRPS float64
	RateBurst    int
}

type Server struct {
	router   *httprouter.Router
	products *usecase.ProductUC
	orders   *usecase.OrderUC
	secret   []byte
}

func New(cfg Config, p *usecase.ProductUC, o *usecase.OrderUC) http.Handler {
	s := &Server{router: httprouter.New(), products: p, orders: o, secret: cfg.JWTSecret}
	s.routes()

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
	})

	return Chain(s.router,
		c.Handler,
		RequestID,
		Logging,
		Recovery,
		NewRateLimiter(cfg.RateLimitRPS, cfg.RateBurst).Limit,
	)
}

func (s *Server) routes() {
	s.router.GET("/health", s.health)

	s.router.GET("/products/tenant/:tenantId", s.auth(s.apiSearchProducts))
	s.router.GET("/product/:productId/variants", s.auth(s.apiProductVariants))
	s.router.POST("/order/submit", s.auth(s.apiSubmitOrder))
	s.router.GET("/orders/:orderId", s.auth(s.apiOrder))

	s.router.POST("/admin/import/xlsx", s.auth(s.apiImportXLSX))

	s.router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "route not found"})
	})
	s.router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) apiSearchProducts(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tenantID, err := uuid.Parse(ps.ByName("tenantId"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: tenant id", domain.ErrInvalidInput))
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			writeError(w, r, fmt.Errorf("%w: limit", domain.ErrInvalidInput))
			return
		}
	}
	list, err := s.products.Search(r.Context(), tenantID, r.URL.Query().Get("search"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": list})
}

func (s *Server) apiProductVariants(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID, err := uuid.Parse(ps.ByName("productId"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: product id", domain.ErrInvalidInput))
		return
	}
	list, err := s.products.Variants(r.Context(), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"variants": list})
}

func (s *Server) apiSubmitOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := readSubmitRequest(r)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	o, err := s.orders.Submit(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	zlog.Info().Str("order_id", o.ID.String()).Str("form_id", o.FormID.String()).
		Str("subject", SubjectFrom(r.Context())).Int("items", len(o.Items)).Str("total", o.Total.StringFixed(2)).Msg("order submitted")
	writeJSON(w, http.StatusCreated, map[string]any{"order": o})
}

func (s *Server) apiOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := uuid.Parse(ps.ByName("orderId"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: order id", domain.ErrInvalidInput))
		return
	}
	o, err := s.orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": o, "selectedProducts": o.Lines()})
}

func (s *Server) apiImportXLSX(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, fmt.Errorf("%w: multipart form", domain.ErrInvalidInput))
		return
	}
	raw := r.URL.Query().Get("tenantId")
	if raw == "" {
		raw = r.FormValue("tenantId")
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: tenant id", domain.ErrInvalidInput))
		return
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: file", domain.ErrInvalidInput))
		return
	}
	defer f.Close()

	products, err := importer.ParseXLSX(f)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	n, err := s.products.Import(r.Context(), tenantID, products)
	if err != nil {
		writeError(w, r, err)
		return
	}
	zlog.Info().Str("tenant_id", tenantID.String()).Int("imported", n).Msg("catalog imported")
	writeJSON(w, http.StatusOK, map[string]any{"imported": n})
}

// readSubmitRequest accepts a JSON body or form fields. The selection fields
// and formData may come either as JSON text or as embedded JSON values.
func readSubmitRequest(r *http.Request) (composer.SubmitRequest, error) {
	var req composer.SubmitRequest
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") || strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		if strings.HasPrefix(ct, "multipart/") {
			if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
				return req, fmt.Errorf("form: %w", err)
			}
		} else if err := r.ParseForm(); err != nil {
			return req, fmt.Errorf("form: %w", err)
		}
		req.FormID = r.FormValue("formId")
		req.SelectedProducts = r.FormValue("selectedProducts")
		req.ProductQuantities = r.FormValue("productQuantities")
		req.ProductPrices = r.FormValue("productPrices")
		fd, err := decodeFormData(json.RawMessage(r.FormValue("formData")))
		if err != nil {
			return req, err
		}
		req.FormData = fd
		return req, nil
	}

	var body struct {
		FormID            string          `json:"formId"`
		FormData          json.RawMessage `json:"formData"`
		SelectedProducts  json.RawMessage `json:"selectedProducts"`
		ProductQuantities json.RawMessage `json:"productQuantities"`
		ProductPrices     json.RawMessage `json:"productPrices"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&body); err != nil {
		return req, fmt.Errorf("json body: %w", err)
	}
	req.FormID = body.FormID
	var err error
	if req.SelectedProducts, err = jsonText(body.SelectedProducts); err != nil {
		return req, fmt.Errorf("selectedProducts: %w", err)
	}
	if req.ProductQuantities, err = jsonText(body.ProductQuantities); err != nil {
		return req, fmt.Errorf("productQuantities: %w", err)
	}
	if req.ProductPrices, err = jsonText(body.ProductPrices); err != nil {
		return req, fmt.Errorf("productPrices: %w", err)
	}
	if req.FormData, err = decodeFormData(body.FormData); err != nil {
		return req, err
	}
	return req, nil
}

// jsonText unwraps a JSON string holding a document, or returns an embedded
// document as is.
func jsonText(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return trimmed, nil
}

func decodeFormData(raw json.RawMessage) (map[string]any, error) {
	text, err := jsonText(raw)
	if err != nil || text == "" {
		return map[string]any{}, err
	}
	var fd map[string]any
	if err := json.Unmarshal([]byte(text), &fd); err != nil {
		return nil, fmt.Errorf("formData: %w", err)
	}
	if fd == nil {
		fd = map[string]any{}
	}
	return fd, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		zlog.Error().Err(err).Str("path", r.URL.Path).Str("request_id", RequestIDFrom(r.Context())).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func statusFor(err error) (int, string) {
	var lineErr *domain.InvalidLineError
	var capErr *domain.CapacityExceededError
	switch {
	case errors.As(err, &capErr):
		return http.StatusConflict, capErr.Error()
	case errors.As(err, &lineErr),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrEmptySelection),
		errors.Is(err, domain.ErrVariantRequired):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

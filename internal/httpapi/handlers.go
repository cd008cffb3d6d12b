package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"nexuserp/backend/internal/audit"
	"nexuserp/backend/internal/domain"
	"nexuserp/backend/internal/insight"
	"nexuserp/backend/internal/service"
)

type inventoryReplaceRequest struct {
	Inventory []domain.InventoryItem `json:"inventory"`
}

type employeesReplaceRequest struct {
	Employees []domain.Employee `json:"employees"`
}

// statusFor maps service errors onto HTTP statuses. Anything unknown is a
// backend failure.
func statusFor(err error) int {
	var importErr *service.ImportError
	switch {
	case errors.As(err, &importErr):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrSaleNotFound),
		errors.Is(err, service.ErrEmployeeNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidInventory),
		errors.Is(err, service.ErrInvalidEmployee),
		errors.Is(err, service.ErrInvalidExpense),
		errors.Is(err, service.ErrInvalidSettings),
		errors.Is(err, service.ErrInvalidScan):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, err error) {
	a.writeError(w, statusFor(err), err)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	state, err := a.service.Authenticate(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		a.fail(w, err)
		return
	}

	token, expiresAt, err := a.auth.Issue(state.User.Email, state.User.Role)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.LoginResponse{
		AccessToken: token,
		Role:        state.User.Role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		State:       state,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	state, err := a.service.EndSession(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

// handleCSRFToken returns a stateless token for the X-CSRF-Token header.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

func (a *API) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	state, err := a.service.State(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	metrics, err := a.service.Dashboard(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": metrics})
}

func (a *API) handleInventory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		state, err := a.service.State(r.Context())
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"inventory": state.Inventory})
	case http.MethodPut:
		var req inventoryReplaceRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		state, err := a.service.ReplaceInventory(r.Context(), req.Inventory)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"state": state})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleInventoryItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	var item domain.InventoryItem
	if err := decodeJSON(r, &item); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	state, err := a.service.AddInventoryItem(r.Context(), item)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"state": state})
}

func (a *API) handleInventoryImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	state, count, err := a.service.ImportInventoryCSV(r.Context(), r.Body)
	if err != nil {
		var importErr *service.ImportError
		if errors.As(err, &importErr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  importErr.Error(),
				"line":   importErr.Line,
				"reason": importErr.Reason,
			})
			return
		}
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": count, "state": state})
}

func (a *API) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	var req domain.ScanRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.RecordScan(r.Context(), req.Code)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	forecast, err := a.service.StockOutForecast(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"forecast": forecast})
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	alerts, err := a.service.LowStock(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.Checkout(r.Context(), req.ItemID, req.Quantity)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		state, err := a.service.State(r.Context())
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sales": state.Sales})
	case http.MethodPost:
		var req domain.RecordSaleRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		state, err := a.service.RecordSale(r.Context(), req.Sale, req.Inventory)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"state": state})
	default:
		a.writeMethodNotAllowed(w)
	}
}

// handleSaleActions serves /api/v1/sales/{id}/invoice.
func (a *API) handleSaleActions(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/sales/"), "/")
	saleID, action, ok := strings.Cut(tail, "/")
	if !ok || action != "invoice" || saleID == "" {
		a.writeError(w, http.StatusNotFound, errors.New("unknown sale action"))
		return
	}
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	text, err := a.service.Invoice(r.Context(), saleID)
	if err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func (a *API) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		state, err := a.service.State(r.Context())
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"expenses": state.Expenses})
	case http.MethodPost:
		var req domain.ExpenseCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		state, err := a.service.RecordExpense(r.Context(), domain.Expense{
			Category: strings.TrimSpace(req.Category),
			Amount:   req.Amount,
			Status:   strings.ToUpper(strings.TrimSpace(req.Status)),
		})
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"state": state})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleEmployees(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		state, err := a.service.State(r.Context())
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"employees": state.Employees})
	case http.MethodPut:
		var req employeesReplaceRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		state, err := a.service.ReplaceEmployees(r.Context(), req.Employees)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"state": state})
	default:
		a.writeMethodNotAllowed(w)
	}
}

// handleEmployeeActions serves /api/v1/employees/{id}/hours.
func (a *API) handleEmployeeActions(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/employees/"), "/")
	employeeID, action, ok := strings.Cut(tail, "/")
	if !ok || action != "hours" || employeeID == "" {
		a.writeError(w, http.StatusNotFound, errors.New("unknown employee action"))
		return
	}
	if r.Method != http.MethodPatch {
		a.writeMethodNotAllowed(w)
		return
	}

	var req domain.HoursUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	state, err := a.service.UpdateEmployeeHours(r.Context(), employeeID, req.HoursWorked)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

func (a *API) handlePayroll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	payroll, err := a.service.Payroll(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payroll)
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		state, err := a.service.State(r.Context())
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": state.Settings})
	case http.MethodPut:
		var settings domain.Settings
		if err := decodeJSON(r, &settings); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		state, err := a.service.UpdateSettings(r.Context(), settings)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"state": state})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	state, err := a.service.State(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), audit.MaxEntries, audit.MaxEntries)
	logs := state.AuditLogs
	if len(logs) > limit {
		logs = logs[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit_logs": logs})
}

// handleInsight serves POST /api/v1/insights/{kind}. The body is ignored;
// the briefing is always built from the stored state.
func (a *API) handleInsight(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/insights/"), "/")
	kind, ok := insight.ParseKind(raw)
	if !ok {
		a.writeError(w, http.StatusNotFound, errors.New("unknown insight kind"))
		return
	}

	result, err := a.service.Briefing(r.Context(), kind)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

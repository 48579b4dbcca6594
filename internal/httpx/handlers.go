package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/duongph/go-order-fulfillment/internal/apperr"
	"github.com/duongph/go-order-fulfillment/internal/bus"
	"github.com/duongph/go-order-fulfillment/internal/notifications"
	"github.com/duongph/go-order-fulfillment/internal/orders"
	"github.com/duongph/go-order-fulfillment/internal/shipping"
)

type Handler struct {
	Orders        *orders.Service
	Notifications *notifications.Dispatcher
	Bus           bus.Bus
	StaffGroupID  string
}

func (h *Handler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		r.Post("/orders", h.createOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Post("/orders/{id}/status", h.transitionStatus)
		r.Get("/notifications", h.listNotifications)
		r.Post("/notifications/{id}/read", h.markNotificationRead)
		r.Get("/notifications/unread-count", h.unreadCount)
		r.Get("/shipping/fee", h.shippingFee)
	})
	r.Get("/events", h.events)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), map[string]errBody{
		"error": {Code: apperr.CodeOf(err), Message: apperr.ReasonOf(err)},
	})
}

// ---- orders ----

type lineItemReq struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"image_url"`
}

type createOrderReq struct {
	BuyerID       string        `json:"buyer_id"`
	AddressID     string        `json:"address_id"`
	PaymentMethod string        `json:"payment_method"`
	VoucherCode   string        `json:"voucher_code"`
	Items         []lineItemReq `json:"items"`
}

type lineItemResp struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"image_url"`
}

type orderResp struct {
	ID            string         `json:"id"`
	BuyerID       string         `json:"buyer_id"`
	Status        string         `json:"status"`
	Quantity      int            `json:"quantity"`
	TotalAmount   int64          `json:"total_amount"`
	VoucherID     string         `json:"voucher_id,omitempty"`
	PaymentMethod string         `json:"payment_method"`
	AddressID     string         `json:"address_id"`
	CourierID     string         `json:"courier_id,omitempty"`
	CancelReason  string         `json:"cancel_reason,omitempty"`
	DeliveredAt   *time.Time     `json:"delivered_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Items         []lineItemResp `json:"items"`
}

func toOrderResp(o *orders.Order) orderResp {
	resp := orderResp{
		ID:            o.ID,
		BuyerID:       o.BuyerID,
		Status:        string(o.Status),
		Quantity:      o.Quantity,
		TotalAmount:   o.TotalAmount,
		VoucherID:     o.VoucherID,
		PaymentMethod: string(o.PaymentMethod),
		AddressID:     o.AddressID,
		CourierID:     o.CourierID,
		CancelReason:  o.CancelReason,
		DeliveredAt:   o.DeliveredAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Items:         make([]lineItemResp, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, lineItemResp{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			ImageURL:  it.ImageURL,
		})
	}
	return resp
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, apperr.New(apperr.CodeInvalidInput, "invalid json"))
		return
	}
	pm, err := orders.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		writeErr(w, err)
		return
	}
	in := orders.CreateOrderInput{
		BuyerID:       req.BuyerID,
		AddressID:     req.AddressID,
		PaymentMethod: pm,
		VoucherCode:   req.VoucherCode,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, orders.LineItemInput{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			ImageURL:  it.ImageURL,
		})
	}
	o, err := h.Orders.CreateOrder(r.Context(), in)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResp(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f orders.ListFilter
	if s := q.Get("status"); s != "" {
		st, err := orders.ParseStatus(s)
		if err != nil {
			writeErr(w, err)
			return
		}
		f.Status = st
	}
	f.BuyerID = q.Get("buyer_id")
	if s := q.Get("payment_method"); s != "" {
		pm, err := orders.ParsePaymentMethod(s)
		if err != nil {
			writeErr(w, err)
			return
		}
		f.PaymentMethod = pm
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	sortDesc := q.Get("sort") != "asc" // newest first unless asked otherwise

	res, err := h.Orders.ListOrders(r.Context(), f, page, pageSize, sortDesc)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]orderResp, 0, len(res.Orders))
	for i := range res.Orders {
		out = append(out, toOrderResp(&res.Orders[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders":    out,
		"total":     res.Total,
		"page":      res.Page,
		"page_size": res.PageSize,
	})
}

type transitionReq struct {
	ActorRole string `json:"actor_role"`
	Status    string `json:"status"`
	CourierID string `json:"courier_id"`
	Reason    string `json:"reason"`
}

func (h *Handler) transitionStatus(w http.ResponseWriter, r *http.Request) {
	var req transitionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, apperr.New(apperr.CodeInvalidInput, "invalid json"))
		return
	}
	role, err := orders.ParseRole(req.ActorRole)
	if err != nil {
		writeErr(w, err)
		return
	}
	to, err := orders.ParseStatus(req.Status)
	if err != nil {
		writeErr(w, err)
		return
	}
	o, err := h.Orders.TransitionStatus(r.Context(), orders.TransitionInput{
		OrderID:   chi.URLParam(r, "id"),
		Actor:     role,
		To:        to,
		CourierID: req.CourierID,
		Reason:    req.Reason,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

// ---- notifications ----

func recipientFromQuery(r *http.Request) notifications.Recipient {
	q := r.URL.Query()
	if id := q.Get("user_id"); id != "" {
		return notifications.UserRecipient(id)
	}
	return notifications.GroupRecipient(q.Get("group"))
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.Notifications.List(r.Context(), recipientFromQuery(r), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	if out == nil {
		out = []notifications.Notification{}
	}
	writeJSON(w, http.StatusOK, out)
}

type markReadReq struct {
	UserID string `json:"user_id"`
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	var req markReadReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, apperr.New(apperr.CodeInvalidInput, "invalid json"))
		return
	}
	n, err := h.Notifications.MarkRead(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notifications.UnreadCount(r.Context(), recipientFromQuery(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": n})
}

// ---- shipping ----

func (h *Handler) shippingFee(w http.ResponseWriter, r *http.Request) {
	quote, err := shipping.Fee(r.URL.Query().Get("region"))
	if err != nil {
		writeErr(w, apperr.New(apperr.CodeInvalidInput, "invalid region"))
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

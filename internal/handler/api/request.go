package api

import (
	"net/http"
	"strconv"

	"reservation-engine/internal/domain/request"
	reqdto "reservation-engine/internal/handler/dto/request"
	resdto "reservation-engine/internal/handler/dto/response"
	"reservation-engine/internal/handler/httperr"
	"reservation-engine/internal/infra"
	"reservation-engine/internal/pkg/errs"
	"reservation-engine/internal/usecase/commands"
	"reservation-engine/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RequestHandler struct {
	requestCommands commands.RequestCommands
	requestQueries  queries.RequestQueries
}

func NewRequestHandler(requestCommands commands.RequestCommands, requestQueries queries.RequestQueries) *RequestHandler {
	return &RequestHandler{
		requestCommands: requestCommands,
		requestQueries:  requestQueries,
	}
}

// @Summary Create reservation request
// @Description Submit a reservation request; conflicts are flagged, not rejected
// @Tags requests
// @Accept json
// @Produce json
// @Param request body reqdto.CreateReservationRequest true "Reservation request"
// @Success 201 {object} resdto.CreateReservationRequestResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req reqdto.CreateReservationRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	params, err := req.ToParams()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid date format, expected YYYY-MM-DD",
		})
		return
	}

	result, err := h.requestCommands.CreateRequest(c.Request.Context(), params)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resdto.FromCreateResult(result))
}

// @Summary List reservation requests
// @Description List requests; pending rows carry live conflict and queue annotations
// @Tags requests
// @Produce json
// @Param status query string false "Filter by status"
// @Param request_type query string false "Filter by request type"
// @Param program_module_id query string false "Filter by program module"
// @Param resource_id query string false "Filter by resource"
// @Param requested_by query string false "Filter by requester"
// @Success 200 {array} resdto.ReservationRequestResponse
// @Failure 400 {object} map[string]string
// @Router /requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	filters, err := h.parseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid filter parameters",
		})
		return
	}

	views, err := h.requestQueries.List(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := make([]*resdto.ReservationRequestResponse, len(views))
	for i, v := range views {
		response[i] = resdto.FromRequestView(v)
	}
	c.JSON(http.StatusOK, response)
}

// @Summary Get reservation request
// @Tags requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} resdto.ReservationRequestResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	view, err := h.requestQueries.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromRequestView(view))
}

// @Summary Approve reservation request
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body reqdto.ApproveRequest true "Approver"
// @Success 200 {object} resdto.ReservationRequestResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /requests/{id}/approve [post]
func (h *RequestHandler) Approve(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req reqdto.ApproveRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	view, err := h.requestCommands.Approve(c.Request.Context(), id, req.ApproverID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromRequestView(view))
}

// @Summary Reject reservation request
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body reqdto.RejectRequest true "Approver and reason"
// @Success 200 {object} resdto.ReservationRequestResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /requests/{id}/reject [post]
func (h *RequestHandler) Reject(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req reqdto.RejectRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	view, err := h.requestCommands.Reject(c.Request.Context(), id, req.ApproverID, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromRequestView(view))
}

// @Summary Return reservation request for amendment
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body reqdto.ReturnForAmendmentRequest true "Approver and notes"
// @Success 200 {object} resdto.ReservationRequestResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /requests/{id}/return-for-amendment [post]
func (h *RequestHandler) ReturnForAmendment(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req reqdto.ReturnForAmendmentRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	view, err := h.requestCommands.ReturnForAmendment(c.Request.Context(), id, req.ApproverID, req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromRequestView(view))
}

// @Summary Resubmit amended reservation request
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body reqdto.ResubmitRequest true "Amended fields"
// @Success 200 {object} resdto.ReservationRequestResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /requests/{id}/resubmit [post]
func (h *RequestHandler) Resubmit(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req reqdto.ResubmitRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	params, err := req.ToParams()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid date format, expected YYYY-MM-DD",
		})
		return
	}

	view, err := h.requestCommands.Resubmit(c.Request.Context(), id, params)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromRequestView(view))
}

// @Summary Bind a concrete resource to a type-only request
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body reqdto.BindResourceRequest true "Resource"
// @Success 200 {object} resdto.ReservationRequestResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /requests/{id}/bind-resource [post]
func (h *RequestHandler) BindResource(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req reqdto.BindResourceRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	view, err := h.requestCommands.BindResource(c.Request.Context(), id, req.ResourceID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromRequestView(view))
}

// @Summary Allocate the resource to an approved request
// @Description Fails with 409 when an overlapping booking already holds the resource
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body reqdto.AllocateRequest true "Allocator"
// @Success 200 {object} resdto.ReservationRequestResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /requests/{id}/allocate [post]
func (h *RequestHandler) Allocate(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req reqdto.AllocateRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	view, err := h.requestCommands.Allocate(c.Request.Context(), id, req.AllocatorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromRequestView(view))
}

// @Summary Return an allocated resource
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body reqdto.ReturnRequest true "Return details"
// @Success 200 {object} resdto.ReservationRequestResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /requests/{id}/return [post]
func (h *RequestHandler) Return(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req reqdto.ReturnRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	view, err := h.requestCommands.Return(c.Request.Context(), id, commands.ReturnParams{
		Condition: req.Condition,
		Notes:     req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromRequestView(view))
}

// @Summary Delete reservation request
// @Tags requests
// @Param id path string true "Request ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /requests/{id} [delete]
func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.requestCommands.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RequestHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request ID format", nil)
		return uuid.Nil, false
	}
	return id, true
}

// respondError matches with errs.Is because command sentinels arrive as
// marks, which the standard library's errors.Is does not traverse.
func (h *RequestHandler) respondError(c *gin.Context, err error) {
	switch {
	case errs.Is(err, commands.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Reservation request not found",
		})
	case errs.Is(err, commands.ErrResourceNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Resource not found",
		})
	case errs.Is(err, commands.ErrResourceConflict):
		var conflict *commands.ConflictError
		detail := gin.H{"error": "Resource is already booked for an overlapping period"}
		if errs.As(err, &conflict) {
			detail["blocking_request_id"] = conflict.Blocking.RequestID
		}
		c.JSON(http.StatusConflict, detail)
	case errs.Is(err, commands.ErrScheduleRequired):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Request needs a bound resource and both dates before allocation",
		})
	case errs.Is(err, commands.ErrInvalidStateTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Current status does not permit this action",
		})
	case errs.Is(err, commands.ErrResourceUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Resource cannot take assignments",
		})
	case errs.Is(err, commands.ErrValidation), errs.Is(err, queries.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request parameters",
		})
	case infra.IsKind(err, infra.KindNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Reservation request not found",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}

func (h *RequestHandler) parseFilters(c *gin.Context) (queries.ListFilters, error) {
	var filters queries.ListFilters

	if s := c.Query("status"); s != "" {
		status := request.Status(s)
		filters.Status = &status
	}
	if t := c.Query("request_type"); t != "" {
		filters.RequestType = &t
	}
	if err := parseUUIDQuery(c, "program_module_id", &filters.ProgramModuleID); err != nil {
		return filters, err
	}
	if err := parseUUIDQuery(c, "resource_id", &filters.ResourceID); err != nil {
		return filters, err
	}
	if err := parseUUIDQuery(c, "requested_by", &filters.RequestedBy); err != nil {
		return filters, err
	}
	if err := parseInt32Query(c, "limit", &filters.Limit); err != nil {
		return filters, err
	}
	if err := parseInt32Query(c, "offset", &filters.Offset); err != nil {
		return filters, err
	}
	return filters, nil
}

func parseUUIDQuery(c *gin.Context, name string, target **uuid.UUID) error {
	if v := c.Query(name); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		*target = &id
	}
	return nil
}

func parseInt32Query(c *gin.Context, name string, target *int32) error {
	if v := c.Query(name); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return err
		}
		*target = int32(n)
	}
	return nil
}

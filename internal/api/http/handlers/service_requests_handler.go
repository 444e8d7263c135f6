package handlers

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/gas-service-portal/internal/api/dto"
	"github.com/spec-kit/gas-service-portal/internal/auth"
	"github.com/spec-kit/gas-service-portal/internal/domain"
	"github.com/spec-kit/gas-service-portal/internal/service"
	"github.com/spec-kit/gas-service-portal/internal/storage"
	apperrors "github.com/spec-kit/gas-service-portal/pkg/util/errorutil"
)

// attachmentsField is the multipart field carrying uploaded files.
const attachmentsField = "attachments"

// ServiceRequestsHandler manages service request endpoints.
type ServiceRequestsHandler struct {
	service *service.RequestService
}

// NewServiceRequestsHandler constructs handler.
func NewServiceRequestsHandler(requestService *service.RequestService) *ServiceRequestsHandler {
	return &ServiceRequestsHandler{service: requestService}
}

// Create POST /service-requests. Accepts multipart (with attachments) or JSON.
func (h *ServiceRequestsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	var (
		input service.CreateRequestInput
		err   error
	)
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		input, err = parseCreateJSON(c)
	} else {
		input, err = parseCreateMultipart(c)
	}
	if err != nil {
		return err
	}

	req, err := h.service.Create(c.UserContext(), principal.User, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewServiceRequestResponse(req))
}

// ListAll GET /service-requests/all.
func (h *ServiceRequestsHandler) ListAll(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	filter := service.RequestFilter{
		Statuses:   splitQuery[domain.RequestStatus](c.Query("status")),
		Priorities: splitQuery[domain.RequestPriority](c.Query("priority")),
		Types:      splitQuery[domain.RequestType](c.Query("type")),
	}
	views, err := h.service.ListAll(c.UserContext(), principal.User, filter)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewServiceRequestViewResponses(views))
}

// ListOwn GET /service-requests/my-requests.
func (h *ServiceRequestsHandler) ListOwn(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	views, err := h.service.ListOwn(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewServiceRequestViewResponses(views))
}

// Get GET /service-requests/:id.
func (h *ServiceRequestsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	view, err := h.service.Get(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewServiceRequestViewResponse(view))
}

// History GET /service-requests/:id/history.
func (h *ServiceRequestsHandler) History(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	entries, err := h.service.History(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewHistoryResponses(entries))
}

// UpdateStatus PATCH /service-requests/:id/status.
func (h *ServiceRequestsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	updated, err := h.service.SetStatus(c.UserContext(), principal.User, c.Params("id"), domain.RequestStatus(req.Status), req.Version)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewServiceRequestResponse(updated))
}

// Assign PATCH /service-requests/:id/assign.
func (h *ServiceRequestsHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	updated, err := h.service.Assign(c.UserContext(), principal.User, c.Params("id"), req.AssignedTo, req.Version)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewServiceRequestResponse(updated))
}

// AddComment POST /service-requests/:id/comments.
func (h *ServiceRequestsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	updated, err := h.service.AddComment(c.UserContext(), principal.User, c.Params("id"), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewServiceRequestResponse(updated))
}

func parseCreateJSON(c *fiber.Ctx) (service.CreateRequestInput, error) {
	var body dto.CreateServiceRequestBody
	if err := c.BodyParser(&body); err != nil {
		return service.CreateRequestInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(body); err != nil {
		return service.CreateRequestInput{}, err
	}
	return service.CreateRequestInput{
		Type:        domain.RequestType(body.Type),
		Description: body.Description,
		Priority:    domain.RequestPriority(body.Priority),
		Location:    body.Location,
	}, nil
}

func parseCreateMultipart(c *fiber.Ctx) (service.CreateRequestInput, error) {
	var form dto.CreateServiceRequestForm
	if err := c.BodyParser(&form); err != nil {
		return service.CreateRequestInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(form); err != nil {
		return service.CreateRequestInput{}, err
	}

	input := service.CreateRequestInput{
		Type:        domain.RequestType(form.Type),
		Description: form.Description,
		Priority:    domain.RequestPriority(form.Priority),
	}
	if raw := strings.TrimSpace(form.Location); raw != "" {
		var loc domain.Location
		if err := json.Unmarshal([]byte(raw), &loc); err != nil {
			return service.CreateRequestInput{}, apperrors.NewValidationError("location must be a JSON object", nil)
		}
		input.Location = &loc
	}

	if mf, err := c.MultipartForm(); err == nil {
		for _, fh := range mf.File[attachmentsField] {
			input.Uploads = append(input.Uploads, toUpload(fh))
		}
	}
	return input, nil
}

func toUpload(fh *multipart.FileHeader) storage.Upload {
	return storage.Upload{
		FileName: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func splitQuery[T ~string](raw string) []T {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var values []T
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, T(part))
		}
	}
	return values
}

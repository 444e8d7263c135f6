package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/gas-service-portal/internal/domain"
)

// ServiceRequestFilter narrows request listings. Empty slices match everything.
type ServiceRequestFilter struct {
	CustomerID *string
	AssignedTo *string
	Statuses   []domain.RequestStatus
	Priorities []domain.RequestPriority
	Types      []domain.RequestType
}

// ServiceRequestRepository encapsulates service request persistence.
//
// Update writes status, priority, assignment and resolvedAt only if the stored
// version still equals req.Version; on success req.Version and req.UpdatedAt are
// refreshed. AppendComment is an atomic append and never conflicts.
type ServiceRequestRepository interface {
	Create(ctx context.Context, req *domain.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	List(ctx context.Context, filter ServiceRequestFilter) ([]domain.ServiceRequest, error)
	Update(ctx context.Context, req *domain.ServiceRequest) error
	AppendComment(ctx context.Context, id string, comment domain.Comment) (*domain.ServiceRequest, error)
}

type serviceRequestRepository struct {
	db DB
}

// NewServiceRequestRepository instantiates repository.
func NewServiceRequestRepository(db DB) ServiceRequestRepository {
	return &serviceRequestRepository{db: db}
}

const serviceRequestColumns = `id, customer_id, type, status, priority, description, location,
        attachments, assigned_to, comments, resolved_at, version, created_at, updated_at`

func (r *serviceRequestRepository) Create(ctx context.Context, req *domain.ServiceRequest) error {
	const query = `
        INSERT INTO service_requests (customer_id, type, status, priority, description, location, attachments, comments)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, version, created_at, updated_at`
	if req.Attachments == nil {
		req.Attachments = []domain.Attachment{}
	}
	if req.Comments == nil {
		req.Comments = []domain.Comment{}
	}
	return r.db.QueryRow(ctx, query,
		req.CustomerID,
		req.Type,
		req.Status,
		req.Priority,
		req.Description,
		req.Location,
		req.Attachments,
		req.Comments,
	).Scan(&req.ID, &req.Version, &req.CreatedAt, &req.UpdatedAt)
}

func (r *serviceRequestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	query := `SELECT ` + serviceRequestColumns + ` FROM service_requests WHERE id=$1`
	return scanServiceRequest(r.db.QueryRow(ctx, query, id))
}

func (r *serviceRequestRepository) List(ctx context.Context, filter ServiceRequestFilter) ([]domain.ServiceRequest, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, toStrings(filter.Statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(filter.Priorities) > 0 {
		args = append(args, toStrings(filter.Priorities))
		clauses = append(clauses, fmt.Sprintf("priority = ANY($%d)", len(args)))
	}
	if len(filter.Types) > 0 {
		args = append(args, toStrings(filter.Types))
		clauses = append(clauses, fmt.Sprintf("type = ANY($%d)", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE %s ORDER BY created_at DESC, id DESC`,
		serviceRequestColumns, strings.Join(clauses, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ServiceRequest{}
	for rows.Next() {
		req, err := scanServiceRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func (r *serviceRequestRepository) Update(ctx context.Context, req *domain.ServiceRequest) error {
	const query = `
        UPDATE service_requests SET status=$1, priority=$2, assigned_to=$3, resolved_at=$4,
            version=version+1, updated_at=NOW()
        WHERE id=$5 AND version=$6
        RETURNING version, updated_at`
	err := r.db.QueryRow(ctx, query,
		req.Status,
		req.Priority,
		req.AssignedTo,
		req.ResolvedAt,
		req.ID,
		req.Version,
	).Scan(&req.Version, &req.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM service_requests WHERE id=$1)`, req.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}
	return ErrVersionConflict
}

func (r *serviceRequestRepository) AppendComment(ctx context.Context, id string, comment domain.Comment) (*domain.ServiceRequest, error) {
	query := `
        UPDATE service_requests SET comments = comments || $1::jsonb, updated_at=NOW()
        WHERE id=$2
        RETURNING ` + serviceRequestColumns
	return scanServiceRequest(r.db.QueryRow(ctx, query, []domain.Comment{comment}, id))
}

func scanServiceRequest(row pgx.Row) (*domain.ServiceRequest, error) {
	var req domain.ServiceRequest
	if err := row.Scan(
		&req.ID,
		&req.CustomerID,
		&req.Type,
		&req.Status,
		&req.Priority,
		&req.Description,
		&req.Location,
		&req.Attachments,
		&req.AssignedTo,
		&req.Comments,
		&req.ResolvedAt,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

package tickets

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusbuzz/backend/internal/models"
	"github.com/campusbuzz/backend/pkg/apperr"
	"github.com/campusbuzz/backend/pkg/storage"
)

// ObjectStore keeps rendered QR images.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	PresignedDownloadURL(ctx context.Context, key string) (string, error)
}

// QRImage is either a link to a stored image or the PNG itself.
type QRImage struct {
	URL string
	PNG []byte
}

// Service serves ticket reads and QR images.
type Service struct {
	tickets Store
	objects ObjectStore
	qrSize  int
	logger  *zap.Logger
}

// NewService creates a ticket read service. objects may be nil; QR images are then rendered per request.
func NewService(tickets Store, objects ObjectStore, qrSize int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{tickets: tickets, objects: objects, qrSize: qrSize, logger: logger}
}

// List returns the requester's tickets, or every ticket when an admin asks for all.
func (s *Service) List(ctx context.Context, requester models.Requester, all bool) ([]models.Ticket, error) {
	if requester.UserID == uuid.Nil {
		return nil, apperr.Unauthenticated("not authenticated")
	}
	if all {
		if !requester.IsAdmin {
			return nil, apperr.Forbidden("admin access required")
		}
		return s.tickets.ListAll(ctx)
	}
	return s.tickets.ListByUser(ctx, requester.UserID)
}

// Get returns one ticket to its holder or an admin.
func (s *Service) Get(ctx context.Context, id uuid.UUID, requester models.Requester) (*models.Ticket, error) {
	if requester.UserID == uuid.Nil {
		return nil, apperr.Unauthenticated("not authenticated")
	}
	t, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.UserID != requester.UserID && !requester.IsAdmin {
		return nil, apperr.NotFound("ticket not found")
	}
	return t, nil
}

// QR returns the ticket's QR image. A stored image is linked when available,
// otherwise the PNG is rendered from the stored payload.
func (s *Service) QR(ctx context.Context, id uuid.UUID, requester models.Requester) (*QRImage, error) {
	t, err := s.Get(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if s.objects != nil && t.QRImageKey != nil && *t.QRImageKey != "" {
		url, err := s.objects.PresignedDownloadURL(ctx, *t.QRImageKey)
		if err == nil {
			return &QRImage{URL: url}, nil
		}
		s.logger.Warn("presign qr image failed, rendering inline", zap.String("ticket_id", id.String()), zap.Error(err))
	}
	png, err := RenderQR(t.Details.QRData, s.qrSize)
	if err != nil {
		return nil, apperr.Internal("render qr", err)
	}
	return &QRImage{PNG: png}, nil
}

// PublishQR renders the ticket's QR image, uploads it and records its key.
func (s *Service) PublishQR(ctx context.Context, ticketID uuid.UUID) (string, error) {
	if s.objects == nil {
		return "", errors.New("object storage is not configured")
	}
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return "", err
	}
	png, err := RenderQR(t.Details.QRData, s.qrSize)
	if err != nil {
		return "", err
	}
	key := storage.TicketQRKey(t.EventID.String(), t.ID.String())
	if err := s.objects.Upload(ctx, key, storage.ContentTypePNG, bytes.NewReader(png)); err != nil {
		return "", err
	}
	if err := s.tickets.SetQRImageKey(ctx, t.ID, key); err != nil {
		return "", err
	}
	return key, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"mindspark/internal/certificate"
	"mindspark/internal/logger"
	"mindspark/internal/models"
)

var ErrNothingToCertify = errors.New("no finished quiz to certify")

// IssuedCertificate describes a certificate written for a result
type IssuedCertificate struct {
	CredentialID string
	Credential   string
	Path         string
	URL          string
	Emailed      bool
}

// CertificateService renders, stores and shares quiz certificates
type CertificateService struct {
	renderer  *certificate.Renderer
	signer    *certificate.Signer
	publisher certificate.Publisher
	email     *EmailService
	outputDir string
	log       *logger.Logger
}

// NewCertificateService creates the service. publisher and email may be nil.
func NewCertificateService(renderer *certificate.Renderer, signer *certificate.Signer, publisher certificate.Publisher, email *EmailService, outputDir string, log *logger.Logger) *CertificateService {
	if log == nil {
		log = logger.Nop()
	}
	return &CertificateService{
		renderer:  renderer,
		signer:    signer,
		publisher: publisher,
		email:     email,
		outputDir: outputDir,
		log:       log.With("service", "CertificateService"),
	}
}

// Issue writes a certificate for result. Publishing and e-mail failures are
// logged and leave the local file in place.
func (s *CertificateService) Issue(ctx context.Context, user *models.User, result *models.QuizResult) (*IssuedCertificate, error) {
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	if result == nil || result.TotalQuestions == 0 {
		return nil, ErrNothingToCertify
	}

	id := result.ID
	if id == "" {
		id = uuid.NewString()
	}
	date := result.Date
	if date.IsZero() {
		date = time.Now()
	}
	details := certificate.Details{
		CredentialID: id,
		Name:         user.Name,
		Topic:        result.Topic,
		Difficulty:   string(result.Difficulty),
		Score:        result.ScorePercentage,
		Correct:      result.CorrectAnswers,
		Total:        result.TotalQuestions,
		Date:         certificate.IssuedAt(date),
	}

	credential, err := s.signer.Sign(details)
	if err != nil {
		return nil, err
	}
	png, err := s.renderer.Render(details)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create certificate directory: %w", err)
	}
	path := filepath.Join(s.outputDir, id+".png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write certificate: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.outputDir, id+".jwt"), []byte(credential), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write credential: %w", err)
	}

	issued := &IssuedCertificate{CredentialID: id, Credential: credential, Path: path}

	if s.publisher != nil {
		url, err := s.publisher.Publish(ctx, fmt.Sprintf("certificates/%s/%s.png", user.ID, id), png)
		if err != nil {
			s.log.Warn("failed to publish certificate", "credential_id", id, "error", err)
		} else {
			issued.URL = url
		}
	}

	if s.email.IsEnabled() {
		err := s.email.SendCertificateEmail(ctx, CertificateEmail{
			ToEmail:      user.Email,
			ToName:       user.Name,
			Topic:        result.Topic,
			Score:        result.ScorePercentage,
			CredentialID: id,
			ShareURL:     issued.URL,
		})
		if err != nil {
			s.log.Warn("failed to email certificate", "credential_id", id, "error", err)
		} else {
			issued.Emailed = true
		}
	}

	s.log.Info("certificate issued", "credential_id", id, "path", path, "url", issued.URL)
	return issued, nil
}

// Verify checks a credential and returns what it certifies
func (s *CertificateService) Verify(credential string) (certificate.Details, error) {
	claims, err := s.signer.Verify(credential)
	if err != nil {
		return certificate.Details{}, err
	}
	return claims.Details(), nil
}

package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
	"github.com/denizyurt/takas/repository"
)

// UploadResult, kaydedilen dosyanın bilgisi.
type UploadResult struct {
	Type string `json:"type"` // "image" veya "file"
	URL  string `json:"url"`  // /api/uploads/{name}
}

// UploadService, mesaj eki yükleme işlemleri için interface.
//
// Yükleme gate'e tabidir: kilitli taraf dosya da gönderemez. Dosyalar
// rastgele prefix'li isimle kaydedilir — isim çakışması ve path traversal
// bu şekilde engellenir.
type UploadService interface {
	Save(ctx context.Context, userID, threadID, filename, contentType string, r io.Reader) (*UploadResult, error)
	Open(name string) (*os.File, error)
}

type uploadService struct {
	threadRepo   repository.ThreadRepository
	interestRepo repository.InterestRepository
	dir          string
	maxSize      int64
}

// NewUploadService, constructor. Upload dizinini yoksa oluşturur.
func NewUploadService(
	threadRepo repository.ThreadRepository,
	interestRepo repository.InterestRepository,
	dir string,
	maxSize int64,
) (UploadService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &uploadService{
		threadRepo:   threadRepo,
		interestRepo: interestRepo,
		dir:          dir,
		maxSize:      maxSize,
	}, nil
}

// Save, dosyayı diske yazar ve public URL döner.
func (s *uploadService) Save(ctx context.Context, userID, threadID, filename, contentType string, r io.Reader) (*UploadResult, error) {
	thread, err := s.threadRepo.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !thread.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: not a participant of this thread", pkg.ErrForbidden)
	}

	interest, err := s.interestRepo.GetByID(ctx, thread.InterestID)
	if err != nil {
		return nil, err
	}
	if composerLocked(thread, interest.Status, userID) {
		return nil, fmt.Errorf("%w: confirm the pickup before uploading attachments", pkg.ErrForbidden)
	}

	// Orijinal dosya adından sadece extension alınır; ad rastgeledir.
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 {
		ext = ""
	}
	name := uuid.NewString() + ext

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	// maxSize+1 ile sınırla: tam limit aşımı tespit edilebilsin
	written, err := io.Copy(dst, io.LimitReader(r, s.maxSize+1))
	if err != nil {
		os.Remove(dst.Name())
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}
	if written > s.maxSize {
		os.Remove(dst.Name())
		return nil, fmt.Errorf("%w: file exceeds maximum size", pkg.ErrBadRequest)
	}

	fileType := "file"
	if strings.HasPrefix(contentType, "image/") {
		fileType = models.AttachmentTypeImage
	}

	return &UploadResult{
		Type: fileType,
		URL:  "/api/uploads/" + name,
	}, nil
}

// Open, kaydedilmiş bir dosyayı okumak için açar.
// Path traversal koruması: isim içinde ayraç veya ".." kabul edilmez.
func (s *uploadService) Open(name string) (*os.File, error) {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return nil, fmt.Errorf("%w: invalid file name", pkg.ErrBadRequest)
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: file not found", pkg.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	return f, nil
}

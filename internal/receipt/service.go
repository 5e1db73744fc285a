package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-interpreter/internal/category"
	"github.com/zombor/receipt-interpreter/internal/engine"
	"github.com/zombor/receipt-interpreter/internal/scanning"
)

// ErrEmptyReceipt is returned when neither text nor a file was supplied.
var ErrEmptyReceipt = errors.New("receipt text or file is required")

// Interpreter turns a scan event into a categorized result
type Interpreter interface {
	Interpret(ctx context.Context, in engine.Input) engine.Result
}

// Learner records a user-confirmed merchant category
type Learner interface {
	Learn(merchant, category string) ([]category.LearnedKeyword, error)
}

// KeywordStore lists and resets learned keywords
type KeywordStore interface {
	List() ([]category.LearnedKeyword, error)
	Reset() error
}

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Upload is one file submitted with a receipt
type Upload struct {
	Filename    string
	Data        []byte
	ContentType string
}

// Service handles receipt operations
type Service struct {
	db          DB
	interpreter Interpreter
	learner     Learner
	keywords    KeywordStore
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with uuid IDs and the wall clock
func NewService(db DB, interpreter Interpreter, learner Learner, keywords KeywordStore, storage Storage) *Service {
	return NewServiceWithDeps(db, interpreter, learner, keywords, storage, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, interpreter Interpreter, learner Learner, keywords KeywordStore, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		interpreter: interpreter,
		learner:     learner,
		keywords:    keywords,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// 50 chars for base, plus extension
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}

	ext = unsafeFilenameChars.ReplaceAllString(strings.TrimPrefix(ext, "."), "")
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// ProcessReceipt stores the uploads, interprets the receipt and saves the result
func (s *Service) ProcessReceipt(ctx context.Context, text string, uploads []Upload) (*Receipt, error) {
	if strings.TrimSpace(text) == "" && len(uploads) == 0 {
		return nil, ErrEmptyReceipt
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	files := make([]File, 0, len(uploads))
	pages := make([]scanning.Page, 0, len(uploads))
	for i, u := range uploads {
		saved, err := s.storage.Save(fmt.Sprintf("%s_%d_%s", id, i, sanitizeFilename(u.Filename)), u.Data)
		if err != nil {
			s.deleteFiles(files)
			return nil, fmt.Errorf("saving file: %w", err)
		}
		files = append(files, File{Name: saved, ContentType: u.ContentType})
		pages = append(pages, scanning.Page{Data: u.Data, ContentType: u.ContentType})
	}

	result := s.interpreter.Interpret(ctx, engine.Input{Text: text, Pages: pages})

	receipt := &Receipt{
		ID:         id,
		Merchant:   result.Merchant,
		Date:       result.Date,
		Category:   result.Category,
		Confidence: result.Confidence,
		Source:     result.Source,
		Text:       text,
		Files:      files,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if result.Amount.Valid {
		cents := result.Amount.Decimal.Shift(2).Round(0).IntPart()
		receipt.Amount = &cents
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		s.deleteFiles(files)
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	slog.Info("Processed receipt",
		"id", id,
		"files", len(files),
		"category", receipt.Category,
		"confidence", receipt.Confidence,
		"source", receipt.Source,
	)
	return receipt, nil
}

func (s *Service) deleteFiles(files []File) {
	for _, f := range files {
		if err := s.storage.Delete(f.Name); err != nil {
			slog.Warn("Failed to delete file", "filename", f.Name, "error", err)
		}
	}
}

// ConfirmCategory records the user's category (and optionally corrected
// merchant) for a receipt and feeds it back into keyword learning. The saved
// confirmation stands even when learning fails; that failure is only logged.
func (s *Service) ConfirmCategory(id, categoryName, merchant string) (*Receipt, error) {
	name, ok := category.Canonical(categoryName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", category.ErrInvalidCategory, categoryName)
	}

	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}

	if merchant = strings.TrimSpace(merchant); merchant != "" {
		receipt.Merchant = merchant
	}
	receipt.Category = name
	receipt.Confirmed = true
	receipt.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveReceipt(receipt); err != nil {
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	if receipt.Merchant == "" {
		slog.Info("Category confirmed without a merchant, nothing to learn", "id", id)
		return receipt, nil
	}
	if _, err := s.learner.Learn(receipt.Merchant, name); err != nil {
		slog.Error("Failed to learn keywords", "id", id, "merchant", receipt.Merchant, "error", err)
	}
	return receipt, nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt and its files
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	// File removal failures are logged; the record is deleted regardless
	s.deleteFiles(receipt.Files)

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the file data for one page of a receipt
func (s *Service) GetReceiptFile(id string, page int) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}
	if page < 0 || page >= len(receipt.Files) {
		return nil, "", fmt.Errorf("%w: receipt %s has no file %d", ErrNotFound, id, page)
	}

	file := receipt.Files[page]
	data, err := s.storage.Get(file.Name)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, file.ContentType, nil
}

// ListLearnedKeywords returns every learned keyword
func (s *Service) ListLearnedKeywords() ([]category.LearnedKeyword, error) {
	learned, err := s.keywords.List()
	if err != nil {
		return nil, fmt.Errorf("listing learned keywords: %w", err)
	}
	return learned, nil
}

// ResetLearnedKeywords forgets everything learned from confirmations
func (s *Service) ResetLearnedKeywords() error {
	if err := s.keywords.Reset(); err != nil {
		return fmt.Errorf("resetting learned keywords: %w", err)
	}
	slog.Info("Learned keywords reset")
	return nil
}

// Package activity synthesizes reading and saved-book history for users and
// keeps the per-book reading counters in step with it.
package activity

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/catalog"
	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/dataset"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MaxReadings bounds the readings generated per user.
	MaxReadings = 240
	// MaxSavedBooks bounds the saved books generated per user.
	MaxSavedBooks = 50

	returnDateLayout = time.DateOnly

	opServiceNew = "activity.service.new"
	opRun        = "activity.run"
)

var (
	returnWindowStart = time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)
	returnWindowEnd   = time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)

	errMissingStore  = errors.New("store is required")
	errMissingRandom = errors.New("random source is required")
	noOpLogger       = zap.NewNop()
)

// Store is the document store surface the synthesizer reads and writes through.
type Store interface {
	ListBooks(ctx context.Context) ([]catalog.Book, error)
	UserExists(ctx context.Context, id string) (bool, error)
	IncrementReadings(ctx context.Context, bookID string, delta int64) error
	InsertUsers(ctx context.Context, users []catalog.User) (int, error)
}

// ServiceConfig describes the synthesizer dependencies. PasswordCost defaults
// to bcrypt.DefaultCost.
type ServiceConfig struct {
	Store        Store
	Random       *rand.Rand
	PasswordCost int
	Logger       *zap.Logger
}

// Service generates user activity.
type Service struct {
	store        Store
	random       *rand.Rand
	passwordCost int
	logger       *zap.Logger
}

// Result summarizes one synthesizer run.
type Result struct {
	UsersCreated int `yaml:"usersCreated"`
	UsersSkipped int `yaml:"usersSkipped"`
	Readings     int `yaml:"readings"`
	SavedBooks   int `yaml:"savedBooks"`
}

// NewService validates cfg and builds a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, catalog.NewServiceError(opServiceNew, "missing_store", errMissingStore)
	}
	if cfg.Random == nil {
		return nil, catalog.NewServiceError(opServiceNew, "missing_random", errMissingRandom)
	}
	cost := cfg.PasswordCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, catalog.NewServiceError(opServiceNew, "invalid_password_cost", fmt.Errorf("bcrypt cost %d out of range", cost))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{store: cfg.Store, random: cfg.Random, passwordCost: cost, logger: logger}, nil
}

// Run builds every source user not yet stored. Each user is written as soon as
// its activity is drawn, then the counter of each book it read is incremented
// once per reading. Populations are validated before the first write.
func (s *Service) Run(ctx context.Context, sources []dataset.SourceUser) (Result, error) {
	var result Result

	bounds := make([]BoundingBox, 0, len(sources))
	for _, source := range sources {
		box, err := cityBounds(source.Address.City)
		if err != nil {
			s.logError(opRun, "unknown_city", err, zap.String("username", source.Username))
			return result, catalog.NewServiceError(opRun, "unknown_city", err)
		}
		bounds = append(bounds, box)
	}

	books, err := s.store.ListBooks(ctx)
	if err != nil {
		s.logError(opRun, "book_list_failed", err)
		return result, catalog.NewServiceError(opRun, "book_list_failed", err)
	}
	if len(sources) > 0 {
		if err := checkPopulation(books); err != nil {
			s.logError(opRun, populationReason(err), err)
			return result, catalog.NewServiceError(opRun, populationReason(err), err)
		}
	}

	pending := make(map[string]struct{}, len(sources))
	for index, source := range sources {
		id := catalog.UserID(source.Username, source.Email)
		if _, duplicate := pending[id]; duplicate {
			result.UsersSkipped++
			continue
		}
		pending[id] = struct{}{}
		exists, err := s.store.UserExists(ctx, id)
		if err != nil {
			s.logError(opRun, "user_lookup_failed", err, zap.String("user_id", id))
			return result, catalog.NewServiceError(opRun, "user_lookup_failed", err)
		}
		if exists {
			result.UsersSkipped++
			continue
		}

		user, err := s.newUser(id, source, bounds[index])
		if err != nil {
			s.logError(opRun, "password_hash_failed", err, zap.String("user_id", id))
			return result, catalog.NewServiceError(opRun, "password_hash_failed", err)
		}
		s.drawActivity(&user, books)

		created, err := s.store.InsertUsers(ctx, []catalog.User{user})
		if err != nil {
			s.logError(opRun, "user_insert_failed", err, zap.String("user_id", id))
			return result, catalog.NewServiceError(opRun, "user_insert_failed", err)
		}
		if created == 0 {
			result.UsersSkipped++
			continue
		}
		result.UsersCreated++

		for _, reading := range user.Readings {
			if err := s.store.IncrementReadings(ctx, reading.ID, 1); err != nil {
				s.logError(opRun, "readings_increment_failed", err,
					zap.String("user_id", id),
					zap.String("book_id", reading.ID))
				return result, catalog.NewServiceError(opRun, "readings_increment_failed", err)
			}
		}
		result.Readings += len(user.Readings)
		result.SavedBooks += len(user.SavedBooks)
	}

	s.logger.Info("user activity written",
		zap.Int("users_created", result.UsersCreated),
		zap.Int("users_skipped", result.UsersSkipped),
		zap.Int("readings", result.Readings),
		zap.Int("saved_books", result.SavedBooks))
	return result, nil
}

// checkPopulation requires at least one book and a branch on every book, so
// no draw can fail once writes have started.
func checkPopulation(books []catalog.Book) error {
	if len(books) == 0 {
		return catalog.ErrEmptyBookPopulation
	}
	for _, book := range books {
		if len(book.Branches) == 0 {
			return fmt.Errorf("%w: %s", catalog.ErrBookWithoutBranches, book.ID)
		}
	}
	return nil
}

func populationReason(err error) string {
	if errors.Is(err, catalog.ErrEmptyBookPopulation) {
		return "empty_book_population"
	}
	return "book_without_branches"
}

func (s *Service) drawActivity(user *catalog.User, books []catalog.Book) {
	for range s.random.IntN(MaxReadings + 1) {
		book := books[s.random.IntN(len(books))]
		branch := book.Branches[s.random.IntN(len(book.Branches))]
		user.Readings = append(user.Readings, catalog.Reading{
			ID:         book.ID,
			Title:      book.Title,
			Authors:    book.Authors,
			ReturnDate: s.returnDate(),
			LibraryID:  branch.ID,
			Branch:     branch.Location,
		})
	}
	for range s.random.IntN(MaxSavedBooks + 1) {
		book := books[s.random.IntN(len(books))]
		user.SavedBooks = append(user.SavedBooks, catalog.SavedBook{
			ID:      book.ID,
			Title:   book.Title,
			Authors: book.Authors,
		})
	}
	user.AvgTravelDistance = averageTravelDistance(user.Location, user.Readings)
}

func (s *Service) newUser(id string, source dataset.SourceUser, bounds BoundingBox) (catalog.User, error) {
	password, err := hashPassword(source.Password, s.passwordCost)
	if err != nil {
		return catalog.User{}, err
	}
	return catalog.User{
		ID:          id,
		Username:    source.Username,
		Name:        source.Name,
		Surname:     source.Surname,
		DateOfBirth: source.DateOfBirth,
		Password:    password,
		UserType:    source.UserType,
		Email:       source.Email,
		Address: catalog.Address{
			Street:     source.Address.Street,
			City:       source.Address.City,
			Province:   source.Address.Province,
			PostalCode: source.Address.PostalCode.String(),
			Country:    source.Address.Country,
		},
		Location:   bounds.sample(s.random),
		Readings:   []catalog.Reading{},
		SavedBooks: []catalog.SavedBook{},
	}, nil
}

func (s *Service) returnDate() string {
	days := int(returnWindowEnd.Sub(returnWindowStart).Hours() / 24)
	return returnWindowStart.AddDate(0, 0, s.random.IntN(days+1)).Format(returnDateLayout)
}

// hashPassword leaves empty and already hashed passwords untouched.
func hashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", nil
	}
	if _, err := bcrypt.Cost([]byte(password)); err == nil {
		return password, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func averageTravelDistance(home catalog.GeoPoint, readings []catalog.Reading) float64 {
	if len(readings) == 0 {
		return 0
	}
	var total float64
	for _, reading := range readings {
		total += catalog.DistanceKm(home, reading.Branch)
	}
	return total / float64(len(readings))
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("activity service error", attrs...)
}

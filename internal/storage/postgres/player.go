package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/cory-johannsen/skirmish/internal/game/combatant"
)

// ErrPlayerNotFound is returned when a player lookup yields no results.
var ErrPlayerNotFound = errors.New("player not found")

// ErrPlayerExists is returned when attempting to create a duplicate name.
var ErrPlayerExists = errors.New("player already exists")

// ErrInvalidCredentials is returned when authentication fails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// PlayerRepository provides player persistence operations. Names are
// matched case-insensitively.
type PlayerRepository struct {
	db *pgxpool.Pool
}

// NewPlayerRepository creates a PlayerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Create inserts a new player with a bcrypt-hashed password.
//
// Precondition: name and password must be non-empty.
// Postcondition: The player row exists with state, or ErrPlayerExists is
// returned if the name is taken.
func (r *PlayerRepository) Create(ctx context.Context, name, password string, state combatant.PlayerState) error {
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO players (name, password_hash, stats, max_stats, inventory, equipped, worn, abilities)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		name, hash, nonNilFloats(state.Stats), nonNilFloats(state.Max), nonNilInts(state.Inventory),
		state.Equipped, nonNilStrings(state.Worn), nonNilStrings(state.Abilities),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrPlayerExists
		}
		return fmt.Errorf("inserting player: %w", err)
	}
	return nil
}

// Authenticate verifies the password for name.
//
// Postcondition: Returns nil if credentials are valid, ErrPlayerNotFound if
// the name doesn't exist, or ErrInvalidCredentials if the password is wrong.
func (r *PlayerRepository) Authenticate(ctx context.Context, name, password string) error {
	var hash string
	err := r.db.QueryRow(ctx,
		`SELECT password_hash FROM players WHERE lower(name) = lower($1)`,
		name,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPlayerNotFound
		}
		return fmt.Errorf("querying player: %w", err)
	}
	if !CheckPassword(password, hash) {
		return ErrInvalidCredentials
	}
	return nil
}

// Load returns the stored state of name.
//
// Postcondition: Returns the PlayerState or ErrPlayerNotFound.
func (r *PlayerRepository) Load(ctx context.Context, name string) (combatant.PlayerState, error) {
	var s combatant.PlayerState
	err := r.db.QueryRow(ctx,
		`SELECT name, stats, max_stats, inventory, equipped, worn, abilities
		 FROM players WHERE lower(name) = lower($1)`,
		name,
	).Scan(&s.Name, &s.Stats, &s.Max, &s.Inventory, &s.Equipped, &s.Worn, &s.Abilities)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return combatant.PlayerState{}, ErrPlayerNotFound
		}
		return combatant.PlayerState{}, fmt.Errorf("loading player: %w", err)
	}
	return s, nil
}

// Save overwrites the stored state of state.Name.
//
// Postcondition: The row reflects state, or ErrPlayerNotFound is returned.
func (r *PlayerRepository) Save(ctx context.Context, state combatant.PlayerState) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE players
		 SET stats = $2, max_stats = $3, inventory = $4, equipped = $5, worn = $6, abilities = $7, updated_at = NOW()
		 WHERE lower(name) = lower($1)`,
		state.Name, nonNilFloats(state.Stats), nonNilFloats(state.Max), nonNilInts(state.Inventory),
		state.Equipped, nonNilStrings(state.Worn), nonNilStrings(state.Abilities),
	)
	if err != nil {
		return fmt.Errorf("saving player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// HashPassword creates a bcrypt hash of the given password.
//
// Precondition: password must be non-empty.
// Postcondition: Returns a bcrypt hash string.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
//
// Postcondition: Returns true if password matches the hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// isDuplicateKeyError checks for SQLSTATE 23505 (unique_violation).
func isDuplicateKeyError(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}

func nonNilFloats(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

func nonNilInts(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

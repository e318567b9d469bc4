package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/AdamBeresnev/pingpong-tables/internal/store"
	"github.com/AdamBeresnev/pingpong-tables/internal/utils"
	"github.com/jmoiron/sqlx"
)

// MaxImportRows caps a single CSV import.
const MaxImportRows = 200

type PlayerService struct {
	db          *sqlx.DB
	store       *store.PlayerStore
	assignments *store.AssignmentStore
	now         func() time.Time
}

func NewPlayerService(db *sqlx.DB) *PlayerService {
	return &PlayerService{
		db:          db,
		store:       store.NewPlayerStore(db),
		assignments: store.NewAssignmentStore(db),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type PlayerInput struct {
	FullName    string  `json:"full_name"`
	PhoneNumber *string `json:"phone_number"`
}

type ImportReport struct {
	TotalRows int      `json:"total_rows"`
	Created   int      `json:"created"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}

func (s *PlayerService) CreatePlayer(ctx context.Context, agentID int64, input PlayerInput) (*pairing.Player, error) {
	player, err := s.buildPlayer(agentID, input)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreatePlayer(ctx, player); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, conflict("phone number already exists")
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

func (s *PlayerService) buildPlayer(agentID int64, input PlayerInput) (*pairing.Player, error) {
	name := utils.CleanName(input.FullName)
	if name == "" {
		return nil, invalid("full_name is required")
	}
	var phone *string
	if input.PhoneNumber != nil {
		phone = utils.CleanPhone(*input.PhoneNumber)
	}
	return &pairing.Player{
		AgentID:     agentID,
		FullName:    name,
		PhoneNumber: phone,
		CreatedAt:   s.now(),
	}, nil
}

func (s *PlayerService) GetPlayers(ctx context.Context, agentID int64) ([]pairing.Player, error) {
	players, err := s.store.GetPlayersByAgentID(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

func (s *PlayerService) GetPlayerByPhone(ctx context.Context, agentID int64, phone string) (*pairing.Player, error) {
	cleaned := utils.CleanPhone(phone)
	if cleaned == nil {
		return nil, invalid("phone number is required")
	}
	player, err := s.store.GetPlayerByPhone(ctx, agentID, *cleaned)
	if err != nil {
		return nil, orNotFound(err, "player")
	}
	return player, nil
}

// UpdatePlayer rewrites the name and phone of the player currently holding phone.
func (s *PlayerService) UpdatePlayer(ctx context.Context, agentID int64, phone string, input PlayerInput) (*pairing.Player, error) {
	player, err := s.GetPlayerByPhone(ctx, agentID, phone)
	if err != nil {
		return nil, err
	}
	updated, err := s.buildPlayer(agentID, input)
	if err != nil {
		return nil, err
	}
	player.FullName = updated.FullName
	player.PhoneNumber = updated.PhoneNumber

	if err := s.store.UpdatePlayer(ctx, player); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, conflict("phone number already exists")
		}
		return nil, fmt.Errorf("failed to update player: %w", err)
	}
	return player, nil
}

// DeletePlayer refuses to remove a player who is still at a table.
func (s *PlayerService) DeletePlayer(ctx context.Context, agentID, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := s.store.GetPlayerTx(ctx, tx, agentID, id); err != nil {
		return orNotFound(err, "player")
	}
	active, err := s.assignments.IsPlayerActiveTx(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("failed to check assignments: %w", err)
	}
	if active {
		return conflict("player is in an active assignment")
	}
	if err := s.store.DeletePlayerTx(ctx, tx, agentID, id); err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	return tx.Commit()
}

// ImportCSV creates players from a full_name,phone_number CSV. Bad rows are
// reported and skipped; the rest are created.
func (s *PlayerService) ImportCSV(ctx context.Context, agentID int64, r io.Reader) (*ImportReport, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if !utf8.Valid(raw) {
		return nil, invalid("could not decode the uploaded file, it must be UTF-8 encoded CSV")
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, invalid("invalid CSV file, the columns full_name and phone_number are required")
	}
	nameCol, phoneCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "full_name":
			nameCol = i
		case "phone_number":
			phoneCol = i
		}
	}
	if nameCol < 0 || phoneCol < 0 {
		return nil, invalid("invalid CSV file, the columns full_name and phone_number are required")
	}

	existing, err := s.store.GetPhoneNumbers(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load phone numbers: %w", err)
	}

	report := &ImportReport{Errors: []string{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if report.TotalRows >= MaxImportRows {
			report.Errors = append(report.Errors, fmt.Sprintf("maximum of %d rows reached, remaining rows were not processed", MaxImportRows))
			break
		}
		report.TotalRows++
		row := report.TotalRows
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: %v", row, err))
			continue
		}

		input := PlayerInput{FullName: field(record, nameCol)}
		if phone := field(record, phoneCol); phone != "" {
			input.PhoneNumber = &phone
		}
		player, err := s.buildPlayer(agentID, input)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: %s", row, Detail(err)))
			continue
		}
		if player.PhoneNumber != nil {
			if _, dup := existing[*player.PhoneNumber]; dup {
				report.Errors = append(report.Errors, fmt.Sprintf("row %d: phone_number '%s' already exists", row, *player.PhoneNumber))
				continue
			}
		}
		if err := s.store.CreatePlayer(ctx, player); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: database error: %v", row, err))
			continue
		}
		report.Created++
		if player.PhoneNumber != nil {
			existing[*player.PhoneNumber] = struct{}{}
		}
	}
	report.Skipped = report.TotalRows - report.Created
	return report, nil
}

func field(record []string, i int) string {
	if i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}

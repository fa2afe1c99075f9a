package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
)

// passTTL is how long a generated pass stays redeemable.
const passTTL = 5 * time.Minute

// PassService issues short-lived QR check-in passes. A pass encodes the rider
// identity; scanning it at the gate redeems it for a regular check-in.
// Passes live in redis, so the service refuses to operate without it.
type PassService struct {
	db     *sql.DB
	redis  *redis.Client
	ledger *LedgerService
}

func NewPassService(db *sql.DB, redisClient *redis.Client, ledger *LedgerService) *PassService {
	return &PassService{
		db:     db,
		redis:  redisClient,
		ledger: ledger,
	}
}

func (s *PassService) GeneratePass(ctx context.Context, riderID string) (string, string, error) {
	if s.redis == nil {
		return "", "", &ConflictError{Message: "pass service unavailable"}
	}

	var riderName string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM riders WHERE id = $1`, riderID).Scan(&riderName)
	if err == sql.ErrNoRows {
		return "", "", &NotFoundError{Resource: "rider", ID: riderID}
	}
	if err != nil {
		return "", "", err
	}

	passData := map[string]any{
		"riderId":   riderID,
		"riderName": riderName,
		"timestamp": time.Now().Unix(),
		"nonce":     s.generateNonce(),
	}

	jsonData, err := json.Marshal(passData)
	if err != nil {
		return "", "", err
	}

	passCode := base64.URLEncoding.EncodeToString(jsonData)

	key := fmt.Sprintf("pass:%s", passCode)
	if err := s.redis.Set(ctx, key, jsonData, passTTL).Err(); err != nil {
		return "", "", err
	}

	qr, err := qrcode.New(passCode, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	passImage := base64.StdEncoding.EncodeToString(buf.Bytes())

	return passCode, passImage, nil
}

// RedeemPass consumes a pass and performs the check-in it stands for.
// A pass is single use: GETDEL claims it atomically, and a failed check-in
// puts it back instead of burning it.
func (s *PassService) RedeemPass(ctx context.Context, passCode, horse string) (map[string]any, error) {
	if s.redis == nil {
		return nil, &ConflictError{Message: "pass service unavailable"}
	}

	key := fmt.Sprintf("pass:%s", passCode)

	data, err := s.redis.GetDel(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, &ValidationError{Field: "passCode", Message: "invalid or expired pass"}
	}
	if err != nil {
		return nil, err
	}

	var payload struct {
		RiderID string `json:"riderId"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}

	rider, ride, err := s.ledger.CheckIn(ctx, payload.RiderID, horse)
	if err != nil {
		s.redis.Set(ctx, key, data, passTTL)
		return nil, err
	}

	return map[string]any{
		"rider": rider,
		"ride":  ride,
	}, nil
}

func (s *PassService) generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

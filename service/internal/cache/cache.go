// internal/cache/cache.go
package cache

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Rdb is the shared Redis client. Nil disables the action log.
var Rdb *redis.Client

// ErrDisabled is returned when Redis has not been initialized.
var ErrDisabled = errors.New("redis action log disabled")

// GameActionRecord is one entry in a session's action log.
type GameActionRecord struct {
	SessionID     string                 `json:"sessionId"`
	GameID        uuid.UUID              `json:"gameId"`
	ActionIndex   int64                  `json:"actionIndex"` // Session version after the action.
	Seq           int                    `json:"seq"`         // Order within one action index.
	ActorPlayer   int                    `json:"actorPlayer,omitempty"`
	ActionType    string                 `json:"actionType"`
	ActionPayload map[string]interface{} `json:"actionPayload,omitempty"`
	Timestamp     int64                  `json:"timestamp"` // Unix milliseconds.
}

// Init connects Rdb to addr. An empty addr leaves the action log disabled.
func Init(ctx context.Context, addr, password string, db int) error {
	if addr == "" {
		log.Info("cache: REDIS_ADDR empty, action log disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("ping redis %s: %w", addr, err)
	}
	Rdb = client
	log.WithField("addr", addr).Info("cache: connected to redis")
	return nil
}

// Close shuts down Rdb if it was initialized.
func Close() error {
	if Rdb == nil {
		return nil
	}
	err := Rdb.Close()
	Rdb = nil
	return err
}

// ActionsKey is the list holding a session's action log.
func ActionsKey(sessionID string) string {
	return "avalon:session:" + sessionID + ":actions"
}

// EventsChannel is the pub/sub channel notified on every session action.
func EventsChannel(sessionID string) string {
	return "avalon:session:" + sessionID + ":events"
}

// PublishGameActions appends recs, in order, to their session's action list
// and announces each on the session's events channel in one transaction.
// All records must belong to the same session.
func PublishGameActions(ctx context.Context, client *redis.Client, recs ...GameActionRecord) error {
	if client == nil {
		return ErrDisabled
	}
	if len(recs) == 0 {
		return nil
	}
	sessionID := recs[0].SessionID
	pipe := client.TxPipeline()
	for _, rec := range recs {
		if rec.SessionID != sessionID {
			return fmt.Errorf("action batch mixes sessions %s and %s", sessionID, rec.SessionID)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode action record: %w", err)
		}
		pipe.RPush(ctx, ActionsKey(sessionID), data)
		pipe.Publish(ctx, EventsChannel(sessionID), data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish actions %d for session %s: %w", recs[0].ActionIndex, sessionID, err)
	}
	return nil
}

// FetchGameActions returns a session's action log ordered by action index,
// then by position within the index.
func FetchGameActions(ctx context.Context, sessionID string) ([]GameActionRecord, error) {
	if Rdb == nil {
		return nil, ErrDisabled
	}
	raw, err := Rdb.LRange(ctx, ActionsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read actions for session %s: %w", sessionID, err)
	}
	return decodeActions(raw)
}

func decodeActions(raw []string) ([]GameActionRecord, error) {
	out := make([]GameActionRecord, 0, len(raw))
	for i, s := range raw {
		var rec GameActionRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decode action %d: %w", i, err)
		}
		out = append(out, rec)
	}
	sortActions(out)
	return out, nil
}

// sortActions orders records by (ActionIndex, Seq). Batches from separate
// operations may land in the list out of order.
func sortActions(recs []GameActionRecord) {
	slices.SortStableFunc(recs, func(a, b GameActionRecord) int {
		if c := cmp.Compare(a.ActionIndex, b.ActionIndex); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
}

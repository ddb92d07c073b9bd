package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hearth/internal/impersonation/models"
	"hearth/pkg/domain"
	"hearth/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "impersonation:session:"
	actorIndexPrefix = "impersonation:actor:"
	tenantIdxPrefix  = "impersonation:tenant:"
	allSessionsKey   = "impersonation:sessions"

	// maxHistoryScan bounds how many index entries a history query loads.
	maxHistoryScan = 5000
)

// RedisStore keeps each session in a hash so action counts can use HINCRBY
// and ends can use HSETNX. Sorted sets scored by start time index sessions
// per actor, per household and globally.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(id domain.SessionID) string { return sessionKeyPrefix + id.String() }
func actorKey(id domain.UserID) string      { return actorIndexPrefix + id.String() }
func tenantKey(id domain.TenantID) string   { return tenantIdxPrefix + id.String() }

// reopenScript clears ended_at only while it still holds the value being undone.
var reopenScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'ended_at') == ARGV[1] then
	redis.call('HDEL', KEYS[1], 'ended_at')
	return 1
end
return 0
`)

func score(t time.Time) float64 { return float64(t.UnixMilli()) }

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	key := sessionKey(session.ID)
	fields := map[string]any{
		"actor_id":         session.ActorID.String(),
		"target_id":        session.TargetID.String(),
		"target_tenant_id": session.TargetTenantID.String(),
		"started_at":       session.StartedAt.UnixNano(),
		"action_count":     session.ActionCount,
	}
	if session.EndedAt != nil {
		fields["ended_at"] = session.EndedAt.UnixNano()
	}

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check impersonation session: %w", err)
	}
	if exists > 0 {
		return sentinel.ErrConflict
	}

	member := redis.Z{Score: score(session.StartedAt), Member: session.ID.String()}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		pipe.ZAdd(ctx, actorKey(session.ActorID), member)
		pipe.ZAdd(ctx, tenantKey(session.TargetTenantID), member)
		pipe.ZAdd(ctx, allSessionsKey, member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create impersonation session: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, id domain.SessionID) (*models.Session, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("find impersonation session: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("impersonation session not found: %w", sentinel.ErrNotFound)
	}
	return sessionFromHash(id.String(), fields)
}

func (s *RedisStore) MarkEnded(ctx context.Context, id domain.SessionID, at time.Time) (bool, error) {
	key := sessionKey(id)
	if err := s.requireExists(ctx, key); err != nil {
		return false, err
	}
	set, err := s.client.HSetNX(ctx, key, "ended_at", at.UnixNano()).Result()
	if err != nil {
		return false, fmt.Errorf("end impersonation session: %w", err)
	}
	return set, nil
}

func (s *RedisStore) Delete(ctx context.Context, session *models.Session) error {
	id := session.ID.String()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(session.ID))
		pipe.ZRem(ctx, actorKey(session.ActorID), id)
		pipe.ZRem(ctx, tenantKey(session.TargetTenantID), id)
		pipe.ZRem(ctx, allSessionsKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete impersonation session: %w", err)
	}
	return nil
}

func (s *RedisStore) Reopen(ctx context.Context, id domain.SessionID, endedAt time.Time) (bool, error) {
	n, err := reopenScript.Run(ctx, s.client, []string{sessionKey(id)}, strconv.FormatInt(endedAt.UnixNano(), 10)).Int()
	if err != nil {
		return false, fmt.Errorf("reopen impersonation session: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) IncrementActions(ctx context.Context, id domain.SessionID) error {
	key := sessionKey(id)
	if err := s.requireExists(ctx, key); err != nil {
		return err
	}
	if err := s.client.HIncrBy(ctx, key, "action_count", 1).Err(); err != nil {
		return fmt.Errorf("increment impersonation actions: %w", err)
	}
	return nil
}

func (s *RedisStore) ListOpenByActor(ctx context.Context, actorID domain.UserID, since time.Time) ([]*models.Session, error) {
	sessions, err := s.loadIndex(ctx, actorKey(actorID), &redis.ZRangeBy{
		Min: "(" + strconv.FormatFloat(score(since), 'f', -1, 64),
		Max: "+inf",
	})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Session, 0, len(sessions))
	for _, session := range sessions {
		if session.EndedAt == nil && session.StartedAt.After(since) {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s *RedisStore) CountOpenByTenant(ctx context.Context, tenantID domain.TenantID, since time.Time) (int, error) {
	sessions, err := s.loadIndex(ctx, tenantKey(tenantID), &redis.ZRangeBy{
		Min: "(" + strconv.FormatFloat(score(since), 'f', -1, 64),
		Max: "+inf",
	})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, session := range sessions {
		if session.EndedAt == nil && session.StartedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (s *RedisStore) History(ctx context.Context, filter models.HistoryFilter, page domain.Page) (domain.PageResult[*models.Session], error) {
	index := allSessionsKey
	if !filter.ActorID.IsNil() {
		index = actorKey(filter.ActorID)
	}
	by := &redis.ZRangeBy{Min: "-inf", Max: "+inf", Count: maxHistoryScan}
	if !filter.From.IsZero() {
		by.Min = strconv.FormatFloat(score(filter.From), 'f', -1, 64)
	}
	if !filter.To.IsZero() {
		by.Max = strconv.FormatFloat(score(filter.To), 'f', -1, 64)
	}

	sessions, err := s.loadIndex(ctx, index, by)
	if err != nil {
		return domain.PageResult[*models.Session]{}, err
	}
	matched := make([]*models.Session, 0, len(sessions))
	for _, session := range sessions {
		if filter.Matches(session) {
			matched = append(matched, session)
		}
	}
	sortNewestFirst(matched)
	return domain.Window(matched, page), nil
}

// loadIndex reads session ids from a sorted set, newest first, and loads
// their hashes in one round trip.
func (s *RedisStore) loadIndex(ctx context.Context, index string, by *redis.ZRangeBy) ([]*models.Session, error) {
	ids, err := s.client.ZRevRangeByScore(ctx, index, by).Result()
	if err != nil {
		return nil, fmt.Errorf("read impersonation index: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Session{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, sessionKeyPrefix+id)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load impersonation sessions: %w", err)
	}

	out := make([]*models.Session, 0, len(ids))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		session, err := sessionFromHash(ids[i], fields)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, nil
}

func (s *RedisStore) requireExists(ctx context.Context, key string) error {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check impersonation session: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func sessionFromHash(id string, fields map[string]string) (*models.Session, error) {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	actorID, err := uuid.Parse(fields["actor_id"])
	if err != nil {
		return nil, fmt.Errorf("parse actor id: %w", err)
	}
	targetID, err := uuid.Parse(fields["target_id"])
	if err != nil {
		return nil, fmt.Errorf("parse target id: %w", err)
	}
	tenantID, err := uuid.Parse(fields["target_tenant_id"])
	if err != nil {
		return nil, fmt.Errorf("parse target household id: %w", err)
	}
	startedAt, err := strconv.ParseInt(fields["started_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	count, err := strconv.Atoi(fields["action_count"])
	if err != nil {
		return nil, fmt.Errorf("parse action_count: %w", err)
	}

	session := &models.Session{
		ID:             domain.SessionID(sessionID),
		ActorID:        domain.UserID(actorID),
		TargetID:       domain.UserID(targetID),
		TargetTenantID: domain.TenantID(tenantID),
		StartedAt:      time.Unix(0, startedAt).UTC(),
		ActionCount:    count,
	}
	if raw, ok := fields["ended_at"]; ok {
		endedAt, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}
		t := time.Unix(0, endedAt).UTC()
		session.EndedAt = &t
	}
	return session, nil
}

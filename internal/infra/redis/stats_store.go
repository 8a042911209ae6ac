package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"ctscan-quiz/internal/domain"
)

// recordScript bumps the counters and keeps the maxima in one round trip.
var recordScript = redis.NewScript(`
local key = KEYS[1]
redis.call('HINCRBY', key, 'games', 1)
redis.call('HINCRBY', key, 'correct', ARGV[1])
redis.call('HINCRBY', key, 'questions', ARGV[2])
local best = tonumber(redis.call('HGET', key, 'best') or '0')
if tonumber(ARGV[3]) > best then
  redis.call('HSET', key, 'best', ARGV[3])
end
local level = tonumber(redis.call('HGET', key, 'level') or '0')
if tonumber(ARGV[4]) > level then
  redis.call('HSET', key, 'level', ARGV[4])
end
return 1
`)

// StatsStore keeps player statistics in one hash per player:
// HSET quiz:stats:{player} games correct questions best level
type StatsStore struct {
	client *redis.Client
}

func NewStatsStore(client *redis.Client) *StatsStore {
	return &StatsStore{client: client}
}

func (s *StatsStore) Record(ctx context.Context, result domain.Result) (domain.PlayerStats, error) {
	err := recordScript.Run(ctx, s.client, []string{s.key(result.PlayerName)},
		result.CorrectAnswers, result.TotalQuestions, result.Score, result.MaxLevel,
	).Err()
	if err != nil {
		return domain.PlayerStats{}, err
	}
	return s.Get(ctx, result.PlayerName)
}

func (s *StatsStore) Get(ctx context.Context, player string) (domain.PlayerStats, error) {
	fields, err := s.client.HGetAll(ctx, s.key(player)).Result()
	if err != nil {
		return domain.PlayerStats{}, err
	}
	return domain.PlayerStats{
		PlayerName:      player,
		GamesPlayed:     atoi(fields["games"]),
		BestScore:       atoi(fields["best"]),
		MaxLevelReached: atoi(fields["level"]),
		TotalCorrect:    atoi(fields["correct"]),
		TotalQuestions:  atoi(fields["questions"]),
	}, nil
}

func (s *StatsStore) key(player string) string {
	return "quiz:stats:" + player
}

func atoi(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

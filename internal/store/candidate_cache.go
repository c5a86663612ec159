package store

import (
	"context"
	"encoding/json"
	"fmt"

	"wisefido-apnea/internal/models"
)

// CandidateCache 按 Job 缓存当前候选集合
// 候选编号跨越首次抽取与统计扩展必须保持唯一，所以集合整体物化，
// 判定状态的持久副本在 Postgres，缓存里的状态只是工作视图
type CandidateCache struct {
	kv KV
}

// NewCandidateCache 创建候选缓存
func NewCandidateCache(kv KV) *CandidateCache {
	return &CandidateCache{kv: kv}
}

func candidateKey(jobID string) string {
	return fmt.Sprintf("%s%s:candidates", seriesKeyPrefix, jobID)
}

// Save 整体替换候选集合
func (c *CandidateCache) Save(ctx context.Context, jobID string, candidates []models.Candidate) error {
	data, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("failed to marshal candidates: %w", err)
	}
	return c.kv.Set(ctx, candidateKey(jobID), string(data), 0)
}

// Load 读取候选集合；不存在时返回 models.ErrNotFound
func (c *CandidateCache) Load(ctx context.Context, jobID string) ([]models.Candidate, error) {
	val, err := c.kv.Get(ctx, candidateKey(jobID))
	if err != nil {
		if err == ErrMiss {
			return nil, fmt.Errorf("%w: candidates for job %s", models.ErrNotFound, jobID)
		}
		return nil, err
	}
	var candidates []models.Candidate
	if err := json.Unmarshal([]byte(val), &candidates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal candidates: %w", err)
	}
	return candidates, nil
}

// Delete 删除 Job 的候选集合
func (c *CandidateCache) Delete(ctx context.Context, jobID string) error {
	return c.kv.Del(ctx, candidateKey(jobID))
}

package usecase

import (
	"context"
	"sort"

	"github.com/deenlabs/agent-deen/internal/core/domain"
)

// rerankOrThreshold is the precision stage of the funnel. With a reranker the
// cross-encoder ordering itself is the filter: keep the top rerankTopK, no
// absolute cutoff, because logits are unbounded and relative order is the
// reliable signal. Without one (not configured, or a transient failure),
// fall back to the similarity threshold on the retrieval order.
func (uc *AnswerUseCase) rerankOrThreshold(ctx context.Context, query string, candidates []domain.Passage) ([]domain.Passage, bool) {
	if len(candidates) == 0 {
		return nil, false
	}

	if uc.reranker != nil {
		reranked, err := uc.reranker.Rerank(ctx, query, candidates, uc.cfg.RerankTopK)
		if err == nil {
			sort.SliceStable(reranked, func(i, j int) bool {
				return reranked[i].Score() > reranked[j].Score()
			})
			if len(reranked) > uc.cfg.RerankTopK {
				reranked = reranked[:uc.cfg.RerankTopK]
			}
			return reranked, true
		}
		uc.log.Warn("rerank failed, falling back to similarity threshold", "error", err)
	}

	return filterBySimilarity(candidates, uc.cfg.MinSimilarity), false
}

// filterBySimilarity keeps retrieval order and drops passages below the cosine
// cutoff. Used only when no rerank scores exist.
func filterBySimilarity(candidates []domain.Passage, minScore float64) []domain.Passage {
	kept := make([]domain.Passage, 0, len(candidates))
	for _, p := range candidates {
		if p.SimilarityScore >= minScore {
			kept = append(kept, p)
		}
	}
	return kept
}

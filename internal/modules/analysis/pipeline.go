package analysis

import (
	"context"
	"errors"
	"sort"

	"github.com/kotoba-space/core/internal/models"
	"github.com/kotoba-space/core/internal/modules/configs"
	"github.com/kotoba-space/core/internal/modules/lexicon"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultAnalysisConcurrency = 5

// SentenceResult pairs one sentence with its word analysis. Analyzed is
// false when the oracle failed for this sentence; the sentence is returned
// anyway so callers keep their full set.
type SentenceResult struct {
	Sentence models.SentenceModel `json:"sentence"`
	Words    []WordAnalysis       `json:"words"`
	Analyzed bool                 `json:"analyzed"`
	Error    string               `json:"error,omitempty"`
}

// Pipeline ensures sentences carry a word analysis, serving cached splits
// from the lexeme store and sending only unanalyzed sentences to the oracle.
type Pipeline struct {
	oracle  Oracle
	lexicon *lexicon.Service
	cfgSvc  *configs.Service
	logger  *zap.Logger
}

func NewPipeline(oracle Oracle, lex *lexicon.Service, cfgSvc *configs.Service, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{oracle: oracle, lexicon: lex, cfgSvc: cfgSvc, logger: logger.Named("AnalysisPipeline")}
}

// EnsureAnalyzed returns an analysis for every sentence. Sentences with a
// cached split are rebuilt from stored words and never re-sent to the
// oracle; the rest are analyzed with bounded concurrency, persisted one
// transaction per sentence. A per-sentence oracle failure leaves that
// sentence unanalyzed without failing the batch.
func (p *Pipeline) EnsureAnalyzed(ctx context.Context, sentences []models.SentenceModel, lang string) ([]SentenceResult, error) {
	if len(sentences) == 0 {
		return nil, nil
	}

	cfg, err := p.cfgSvc.Get()
	if err != nil {
		return nil, err
	}
	targetLang := cfg.AI.DefaultTargetLanguage
	concurrency := cfg.Jobs.AnalysisConcurrency
	if concurrency < 1 {
		concurrency = defaultAnalysisConcurrency
	}

	results := make([]SentenceResult, len(sentences))
	uncached := make([]int, 0, len(sentences))
	cachedLiterals := make([]string, 0)

	for i, sentence := range sentences {
		results[i] = SentenceResult{Sentence: sentence}
		if sentence.HasSplit && len(sentence.SplitWords) > 0 {
			cachedLiterals = append(cachedLiterals, sentence.SplitWords...)
		} else {
			uncached = append(uncached, i)
		}
	}

	var projections map[string]lexicon.WordProjection
	if len(cachedLiterals) > 0 {
		projections, err = p.lexicon.ProjectWords(ctx, lang, targetLang, cachedLiterals)
		if err != nil {
			return nil, err
		}
	}

	for i := range results {
		r := &results[i]
		if !r.Sentence.HasSplit || len(r.Sentence.SplitWords) == 0 {
			continue
		}
		r.Words = rebuildFromProjections(r.Sentence.SplitWords, projections)
		r.Analyzed = true
	}

	if len(uncached) > 0 {
		p.analyzeUncached(ctx, results, uncached, lang, targetLang, concurrency)
	}

	sort.SliceStable(results, func(a, b int) bool {
		sa, sb := results[a].Sentence, results[b].Sentence
		if sa.OrderIndex != sb.OrderIndex {
			return sa.OrderIndex < sb.OrderIndex
		}
		return sa.ID < sb.ID
	})
	return results, nil
}

// analyzeUncached runs the oracle over the unanalyzed sentences, at most
// concurrency at a time, and persists each success immediately. Results
// land at their original indices so ordering never depends on completion
// order.
func (p *Pipeline) analyzeUncached(ctx context.Context, results []SentenceResult, uncached []int, lang, targetLang string, concurrency int) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, idx := range uncached {
		idx := idx
		g.Go(func() error {
			r := &results[idx]
			words, err := p.analyzeOne(gctx, &r.Sentence, lang, targetLang)
			if err != nil {
				if errors.Is(err, ErrAnalysisDisabled) || errors.Is(err, ErrNoProvider) {
					r.Error = err.Error()
					return nil
				}
				p.logger.Warn("sentence analysis failed",
					zap.String("sentenceId", r.Sentence.ID), zap.Error(err))
				r.Error = err.Error()
				return nil
			}
			r.Words = words
			r.Analyzed = true
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Pipeline) analyzeOne(ctx context.Context, sentence *models.SentenceModel, lang, targetLang string) ([]WordAnalysis, error) {
	words, err := p.oracle.AnalyzeSentence(ctx, sentence.Text, lang)
	if err != nil {
		return nil, err
	}

	upserts := make([]lexicon.WordUpsert, 0, len(words))
	for _, w := range words {
		upserts = append(upserts, lexicon.WordUpsert{
			Word:              w.Word,
			Translation:       w.Translation,
			TargetLang:        targetLang,
			Pronunciation:     w.Pronunciation,
			PronunciationKind: w.PronunciationType,
			Stem:              w.Stem,
		})
	}
	if err := p.lexicon.ApplyAnalysis(ctx, sentence, lang, upserts); err != nil {
		return nil, err
	}
	return dedupWords(words), nil
}

// dedupWords collapses repeated literals to their first occurrence so a
// fresh analysis returns the same set a cached rebuild would.
func dedupWords(words []WordAnalysis) []WordAnalysis {
	seen := make(map[string]struct{}, len(words))
	out := make([]WordAnalysis, 0, len(words))
	for _, w := range words {
		if _, dup := seen[w.Word]; dup {
			continue
		}
		seen[w.Word] = struct{}{}
		out = append(out, w)
	}
	return out
}

// rebuildFromProjections turns a cached split back into the analysis
// shape, deduplicating repeated literals within the sentence.
func rebuildFromProjections(split []string, projections map[string]lexicon.WordProjection) []WordAnalysis {
	words := make([]WordAnalysis, 0, len(split))
	seen := make(map[string]struct{}, len(split))
	for _, literal := range split {
		if _, dup := seen[literal]; dup {
			continue
		}
		seen[literal] = struct{}{}

		analysis := WordAnalysis{Word: literal}
		if proj, ok := projections[literal]; ok {
			if len(proj.Translations) > 0 {
				analysis.Translation = proj.Translations[0]
			}
			if len(proj.Pronunciations) > 0 {
				analysis.Pronunciation = proj.Pronunciations[0].Value
				analysis.PronunciationType = string(proj.Pronunciations[0].Kind)
			}
			if len(proj.Stems) > 0 {
				analysis.Stem = proj.Stems[0]
			}
		}
		words = append(words, analysis)
	}
	return words
}

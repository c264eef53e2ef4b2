package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/deenlabs/agent-deen/internal/core/domain"
	"github.com/deenlabs/agent-deen/internal/core/ports"
)

type embedderFake struct {
	queryErr  error
	batchErr  error
	lastQuery string
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.1, 0.2}
	}
	return vectors, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.lastQuery = text
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []float32{0.1, 0.2}, nil
}

type vectorFake struct {
	passages  []domain.Passage
	searchErr error
	lastLimit int

	indexed []domain.IndexChunk
}

func (f *vectorFake) IndexChunks(_ context.Context, _ *domain.Document, chunks []domain.IndexChunk, _ [][]float32) error {
	f.indexed = chunks
	return nil
}

func (f *vectorFake) Search(_ context.Context, _ []float32, limit int) ([]domain.Passage, error) {
	f.lastLimit = limit
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.passages, nil
}

func (f *vectorFake) DeleteByDocument(context.Context, string) error { return nil }

type rerankerFake struct {
	err    error
	scores []float64
}

func (f *rerankerFake) Rerank(_ context.Context, _ string, passages []domain.Passage, _ int) ([]domain.Passage, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Passage, len(passages))
	copy(out, passages)
	for i := range out {
		if i < len(f.scores) {
			score := f.scores[i]
			out[i].RerankScore = &score
		}
	}
	return out, nil
}

type translateCall struct {
	text, source, target string
}

type translatorFake struct {
	err   error
	out   string
	calls []translateCall
}

func (f *translatorFake) Translate(_ context.Context, text, sourceLang, targetLang string) (string, error) {
	f.calls = append(f.calls, translateCall{text: text, source: sourceLang, target: targetLang})
	if f.err != nil {
		return "", f.err
	}
	if f.out != "" {
		return f.out, nil
	}
	return "translated: " + text, nil
}

type langIDFake struct {
	code string
	ok   bool
}

func (f langIDFake) Identify(string) (string, bool) { return f.code, f.ok }

type genFake struct {
	response string
	rewrite  string
	err      error
	prompts  []string
	opts     []ports.GenerateOptions
}

func (f *genFake) Generate(_ context.Context, prompt string, opts ports.GenerateOptions) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return "", f.err
	}
	if strings.HasPrefix(prompt, "Given the conversation below") && f.rewrite != "" {
		return f.rewrite, nil
	}
	return f.response, nil
}

func (f *genFake) ModelID() string { return "fake-model" }

type historyFake struct {
	stored    []domain.ChatMessage
	appended  []domain.ChatMessage
	listErr   error
	appendErr error
}

func (f *historyFake) AppendMessage(_ context.Context, msg domain.ChatMessage) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, msg)
	return nil
}

func (f *historyFake) ListRecentMessages(context.Context, string, int) ([]domain.ChatMessage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.stored, nil
}

func relevantPassage(source, title, text string, sim float64) domain.Passage {
	return domain.Passage{
		Text:            text,
		SimilarityScore: sim,
		Metadata: domain.PassageMetadata{
			Source:   source,
			Title:    title,
			Filename: strings.ToLower(strings.ReplaceAll(title, " ", "_")) + ".pdf",
		},
	}
}

type answerDeps struct {
	embedder   *embedderFake
	vector     *vectorFake
	reranker   ports.CrossEncoder
	translator ports.Translator
	langID     ports.LanguageIdentifier
	gen        *genFake
	history    ports.ChatHistoryStore
}

func newAnswerUC(d answerDeps) *AnswerUseCase {
	if d.embedder == nil {
		d.embedder = &embedderFake{}
	}
	if d.vector == nil {
		d.vector = &vectorFake{}
	}
	if d.gen == nil {
		d.gen = &genFake{response: "Based on Source 1, Murabahah is a cost-plus sale."}
	}
	return NewAnswerUseCase(
		d.embedder,
		d.vector,
		d.reranker,
		d.translator,
		d.langID,
		map[string]ports.TextGenerator{"ollama": d.gen},
		"ollama",
		d.history,
		AnswerConfig{},
		nil,
	)
}

func TestAnswerRequiresQuestion(t *testing.T) {
	uc := newAnswerUC(answerDeps{})

	_, err := uc.Answer(context.Background(), domain.AskRequest{Question: "   "})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAnswerShortCircuitsWhenNothingSurvives(t *testing.T) {
	gen := &genFake{response: "must not be used"}
	vector := &vectorFake{passages: []domain.Passage{
		relevantPassage("BNM", "Murabahah Policy", "irrelevant", 0.31),
		relevantPassage("AAOIFI", "Standard 8", "also irrelevant", 0.12),
	}}
	uc := newAnswerUC(answerDeps{vector: vector, gen: gen})

	resp, err := uc.Answer(context.Background(), domain.AskRequest{Question: "What is the ruling on X?"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if resp.Answer != insufficientContextAnswer {
		t.Fatalf("expected the fixed insufficient-context answer, got %q", resp.Answer)
	}
	if resp.Confidence != domain.ConfidenceLow {
		t.Fatalf("expected Low confidence, got %s", resp.Confidence)
	}
	if len(resp.Sources) != 0 {
		t.Fatalf("expected no sources, got %d", len(resp.Sources))
	}
	if len(gen.prompts) != 0 {
		t.Fatalf("generator must not run without surviving passages, got %d calls", len(gen.prompts))
	}
}

func TestAnswerRetrievalPoolDependsOnReranker(t *testing.T) {
	withReranker := &vectorFake{}
	uc := newAnswerUC(answerDeps{vector: withReranker, reranker: &rerankerFake{}})
	if _, err := uc.Answer(context.Background(), domain.AskRequest{Question: "What is Sukuk?"}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if withReranker.lastLimit != 60 {
		t.Fatalf("expected wide pool of 60 with a reranker, got %d", withReranker.lastLimit)
	}

	without := &vectorFake{}
	uc = newAnswerUC(answerDeps{vector: without})
	if _, err := uc.Answer(context.Background(), domain.AskRequest{Question: "What is Sukuk?"}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if without.lastLimit != 10 {
		t.Fatalf("expected fallback pool of 10 without a reranker, got %d", without.lastLimit)
	}
}

func TestAnswerEchoesResolvedBackend(t *testing.T) {
	vector := &vectorFake{passages: []domain.Passage{
		relevantPassage("BNM", "Murabahah Policy", "relevant text", 0.92),
	}}
	uc := newAnswerUC(answerDeps{vector: vector})

	resp, err := uc.Answer(context.Background(), domain.AskRequest{
		Question: "What is Murabahah?",
		Backend:  "no-such-backend",
	})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if resp.ModelUsed != "ollama" {
		t.Fatalf("unknown backend must resolve to the default, got %q", resp.ModelUsed)
	}
}

func TestAnswerWrapsRetrievalFailure(t *testing.T) {
	uc := newAnswerUC(answerDeps{embedder: &embedderFake{queryErr: errors.New("embed down")}})

	_, err := uc.Answer(context.Background(), domain.AskRequest{Question: "What is Riba?"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestAnswerWrapsGenerationFailure(t *testing.T) {
	vector := &vectorFake{passages: []domain.Passage{
		relevantPassage("BNM", "Murabahah Policy", "relevant text", 0.92),
	}}
	gen := &genFake{err: errors.New("backend down")}
	uc := newAnswerUC(answerDeps{vector: vector, gen: gen})

	_, err := uc.Answer(context.Background(), domain.AskRequest{Question: "What is Murabahah?"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestAnswerSearchesInEnglishButPromptsWithOriginal(t *testing.T) {
	question := "Apakah hukum takaful dalam Islam?"
	embedder := &embedderFake{}
	translator := &translatorFake{out: "What is the ruling on takaful in Islam?"}
	vector := &vectorFake{passages: []domain.Passage{
		relevantPassage("BNM", "Takaful Framework", "takaful operators must...", 0.88),
	}}
	gen := &genFake{response: "Berdasarkan Sumber 1, takaful adalah..."}
	uc := newAnswerUC(answerDeps{
		embedder:   embedder,
		vector:     vector,
		translator: translator,
		langID:     langIDFake{code: "ms", ok: true},
		gen:        gen,
	})

	resp, err := uc.Answer(context.Background(), domain.AskRequest{Question: question})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if resp.QueryLanguage != domain.LanguageMalay {
		t.Fatalf("expected Malay query language, got %s", resp.QueryLanguage)
	}
	if embedder.lastQuery != translator.out {
		t.Fatalf("search must use the translated query, got %q", embedder.lastQuery)
	}
	if len(translator.calls) == 0 || translator.calls[0].source != "ms" || translator.calls[0].target != "en" {
		t.Fatalf("unexpected translation calls: %+v", translator.calls)
	}
	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], question) {
		t.Fatalf("prompt must contain the user's original question")
	}
}

func TestAnswerQueryTranslationFailureDegradesToOriginal(t *testing.T) {
	question := "Apakah hukum takaful dalam Islam?"
	embedder := &embedderFake{}
	translator := &translatorFake{err: errors.New("translate down")}
	uc := newAnswerUC(answerDeps{embedder: embedder, translator: translator})

	if _, err := uc.Answer(context.Background(), domain.AskRequest{Question: question}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if embedder.lastQuery != question {
		t.Fatalf("expected search with the original question, got %q", embedder.lastQuery)
	}
}

func TestAnswerRecordsConversationTurns(t *testing.T) {
	history := &historyFake{}
	vector := &vectorFake{passages: []domain.Passage{
		relevantPassage("BNM", "Murabahah Policy", "relevant text", 0.92),
	}}
	uc := newAnswerUC(answerDeps{vector: vector, history: history})

	resp, err := uc.Answer(context.Background(), domain.AskRequest{
		Question:       "What is Murabahah?",
		ConversationID: "c1",
	})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(history.appended) != 2 {
		t.Fatalf("expected user and assistant turns, got %d", len(history.appended))
	}
	user, assistant := history.appended[0], history.appended[1]
	if user.Role != "user" || user.Content != "What is Murabahah?" || user.ConversationID != "c1" {
		t.Fatalf("user turn = %+v", user)
	}
	if assistant.Role != "assistant" || assistant.Content != resp.Answer {
		t.Fatalf("assistant turn = %+v", assistant)
	}
	if assistant.Confidence != string(resp.Confidence) {
		t.Fatalf("assistant confidence = %q, want %q", assistant.Confidence, resp.Confidence)
	}
}

func TestAnswerHistoryFailureIsNotFatal(t *testing.T) {
	history := &historyFake{appendErr: errors.New("db down")}
	vector := &vectorFake{passages: []domain.Passage{
		relevantPassage("BNM", "Murabahah Policy", "relevant text", 0.92),
	}}
	uc := newAnswerUC(answerDeps{vector: vector, history: history})

	if _, err := uc.Answer(context.Background(), domain.AskRequest{
		Question:       "What is Murabahah?",
		ConversationID: "c1",
	}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
}

func TestAnswerRewritesFollowUpForRetrievalOnly(t *testing.T) {
	question := "Is it permissible?"
	embedder := &embedderFake{}
	vector := &vectorFake{passages: []domain.Passage{
		relevantPassage("BNM", "Tawarruq Policy", "tawarruq arrangements...", 0.9),
	}}
	gen := &genFake{
		rewrite:  "Is Tawarruq permissible in Islamic banking?",
		response: "Based on Source 1, Tawarruq is permissible with conditions.",
	}
	uc := newAnswerUC(answerDeps{embedder: embedder, vector: vector, gen: gen})

	_, err := uc.Answer(context.Background(), domain.AskRequest{
		Question: question,
		PriorTurns: []domain.ChatTurn{
			{Role: "user", Content: "What is Tawarruq?"},
			{Role: "assistant", Content: "Tawarruq is a monetization arrangement."},
		},
	})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if embedder.lastQuery != gen.rewrite {
		t.Fatalf("retrieval must use the rewrite, got %q", embedder.lastQuery)
	}
	if len(gen.prompts) != 2 {
		t.Fatalf("expected rewrite + answer calls, got %d", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[1], "User Question (English): "+question) {
		t.Fatalf("advisor prompt must carry the original question, got:\n%s", gen.prompts[1])
	}
	if gen.opts[0].Temperature != rewriteTemperature || gen.opts[0].MaxTokens != rewriteMaxTokens {
		t.Fatalf("rewrite options = %+v", gen.opts[0])
	}
	if gen.opts[1].Temperature != 0.2 || gen.opts[1].MaxTokens != 2000 {
		t.Fatalf("generation options = %+v", gen.opts[1])
	}
}

func TestAnswerPreferenceOverridesDetectedLanguage(t *testing.T) {
	vector := &vectorFake{passages: []domain.Passage{
		relevantPassage("BNM", "Murabahah Policy", "relevant text", 0.92),
	}}
	gen := &genFake{response: "Berdasarkan Sumber 1, Murabahah ialah jualan kos-tambah."}
	translator := &translatorFake{}
	uc := newAnswerUC(answerDeps{
		vector:     vector,
		gen:        gen,
		translator: translator,
		langID:     langIDFake{code: "ms", ok: true},
	})

	preference := domain.LanguageMalay
	resp, err := uc.Answer(context.Background(), domain.AskRequest{
		Question:         "What is Murabahah?",
		ResponseLanguage: &preference,
	})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if resp.QueryLanguage != domain.LanguageEnglish {
		t.Fatalf("query language must stay as detected, got %s", resp.QueryLanguage)
	}
	if !strings.Contains(gen.prompts[0], "YOU MUST RESPOND ENTIRELY IN Bahasa Melayu") {
		t.Fatalf("prompt must demand the preferred response language")
	}
}

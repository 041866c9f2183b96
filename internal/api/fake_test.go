package api

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hairdash/internal/blob"
	"hairdash/internal/identity"
	"hairdash/internal/models"
	"hairdash/internal/store"
	"hairdash/internal/vision"
)

// fakeStore serves canned aggregates and keeps catalogue entities in memory.
// Setting down makes every analytics read fail like an unreachable database.
type fakeStore struct {
	mu   sync.Mutex
	down error

	dashboard    store.DashboardTotals
	daily        []store.DailyConversations
	concerns     []store.ConcernCount
	costRows     []store.CostRow
	modelStats   []store.ModelStats
	modelTrends  []store.ModelTrendRow
	modelErrors  []store.ModelErrorRow
	convTotals   store.ConversationTotals
	topics       []store.TopicCount
	hourly       []store.HourCount
	outcomes     []store.OutcomeRow
	topicTotals  store.TopicTotals
	funnel       []store.ProductFunnel
	volume       []store.DailyCount
	concernTotal store.ConcernTotals
	breakdown    []store.ConcernStats
	trends       []store.ConcernTrendRow
	services     []store.ServiceStats
	latency      []store.LatencyBucket
	recTotals    store.RecommendationTotals

	lastModel string
	lastTopic string

	products     map[string]models.Product
	testimonials map[string]models.Testimonial
	instructions map[string]models.BotInstruction
	webhooks     []models.Webhook
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:     map[string]models.Product{},
		testimonials: map[string]models.Testimonial{},
		instructions: map[string]models.BotInstruction{},
	}
}

func (f *fakeStore) Ping(context.Context) error { return f.down }

func (f *fakeStore) DashboardTotals(context.Context, time.Time) (store.DashboardTotals, error) {
	return f.dashboard, f.down
}

func (f *fakeStore) DailyConversations(context.Context, time.Time) ([]store.DailyConversations, error) {
	return f.daily, f.down
}

func (f *fakeStore) TopConcerns(context.Context, time.Time, int) ([]store.ConcernCount, error) {
	return f.concerns, f.down
}

func (f *fakeStore) CostByDayAndModel(context.Context, time.Time) ([]store.CostRow, error) {
	return f.costRows, f.down
}

func (f *fakeStore) ModelStats(_ context.Context, _ time.Time, model string) ([]store.ModelStats, error) {
	f.mu.Lock()
	f.lastModel = model
	f.mu.Unlock()
	return f.modelStats, f.down
}

func (f *fakeStore) ModelTrends(context.Context, time.Time, string) ([]store.ModelTrendRow, error) {
	return f.modelTrends, f.down
}

func (f *fakeStore) ModelErrors(context.Context, time.Time, string) ([]store.ModelErrorRow, error) {
	return f.modelErrors, f.down
}

func (f *fakeStore) ConversationTotals(context.Context, time.Time) (store.ConversationTotals, error) {
	return f.convTotals, f.down
}

func (f *fakeStore) TopicDistribution(context.Context, time.Time) ([]store.TopicCount, error) {
	return f.topics, f.down
}

func (f *fakeStore) HourlyActivity(context.Context, time.Time) ([]store.HourCount, error) {
	return f.hourly, f.down
}

func (f *fakeStore) OutcomeTrends(context.Context, time.Time) ([]store.OutcomeRow, error) {
	return f.outcomes, f.down
}

func (f *fakeStore) TopicTotals(_ context.Context, _ time.Time, topic string) (store.TopicTotals, error) {
	f.mu.Lock()
	f.lastTopic = topic
	f.mu.Unlock()
	return f.topicTotals, f.down
}

func (f *fakeStore) TopicConcerns(context.Context, time.Time, string, int) ([]store.ConcernCount, error) {
	return f.concerns, f.down
}

func (f *fakeStore) TopicProducts(context.Context, time.Time, string, int) ([]store.ProductFunnel, error) {
	return f.funnel, f.down
}

func (f *fakeStore) TopicDailyVolume(context.Context, time.Time, string) ([]store.DailyCount, error) {
	return f.volume, f.down
}

func (f *fakeStore) ConcernTotals(context.Context, time.Time, string) (store.ConcernTotals, error) {
	return f.concernTotal, f.down
}

func (f *fakeStore) ConcernBreakdown(context.Context, time.Time, string) ([]store.ConcernStats, error) {
	return f.breakdown, f.down
}

func (f *fakeStore) ConcernTrends(context.Context, time.Time, string) ([]store.ConcernTrendRow, error) {
	return f.trends, f.down
}

func (f *fakeStore) ServiceStats(context.Context, time.Time) ([]store.ServiceStats, error) {
	return f.services, f.down
}

func (f *fakeStore) LatencyTrend(context.Context, time.Time, string) ([]store.LatencyBucket, error) {
	return f.latency, f.down
}

func (f *fakeStore) RecommendationTotals(context.Context, time.Time) (store.RecommendationTotals, error) {
	return f.recTotals, f.down
}

func (f *fakeStore) RecommendationFunnel(context.Context, time.Time, int) ([]store.ProductFunnel, error) {
	return f.funnel, f.down
}

func (f *fakeStore) ListProducts(_ context.Context, page, pageSize int, _ store.ProductFilters) (*store.ProductPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := []models.Product{}
	for _, p := range f.products {
		items = append(items, p)
	}
	return &store.ProductPage{Data: items, Total: len(items), Page: page, PageSize: pageSize}, nil
}

func (f *fakeStore) GetProduct(_ context.Context, id string) (models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return models.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) nameTaken(name, except string) bool {
	for id, p := range f.products {
		if id != except && strings.EqualFold(p.ProductName, name) {
			return true
		}
	}
	return false
}

func (f *fakeStore) CreateProduct(_ context.Context, p models.Product) (models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nameTaken(p.ProductName, "") {
		return models.Product{}, store.ErrDuplicate
	}
	p.ProductID = uuid.NewString()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	f.products[p.ProductID] = p
	return p, nil
}

func (f *fakeStore) UpdateProduct(_ context.Context, p models.Product) (models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[p.ProductID]; !ok {
		return models.Product{}, store.ErrNotFound
	}
	if f.nameTaken(p.ProductName, p.ProductID) {
		return models.Product{}, store.ErrDuplicate
	}
	f.products[p.ProductID] = p
	return p, nil
}

func (f *fakeStore) DeleteProduct(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeStore) ListTestimonials(_ context.Context, featured *bool) ([]models.Testimonial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := []models.Testimonial{}
	for _, t := range f.testimonials {
		if featured == nil || t.IsFeatured == *featured {
			items = append(items, t)
		}
	}
	return items, nil
}

func (f *fakeStore) CreateTestimonial(_ context.Context, t models.Testimonial) (models.Testimonial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.TestimonialID = uuid.NewString()
	f.testimonials[t.TestimonialID] = t
	return t, nil
}

func (f *fakeStore) UpdateTestimonial(_ context.Context, t models.Testimonial) (models.Testimonial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.testimonials[t.TestimonialID]; !ok {
		return models.Testimonial{}, store.ErrNotFound
	}
	f.testimonials[t.TestimonialID] = t
	return t, nil
}

func (f *fakeStore) DeleteTestimonial(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.testimonials[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.testimonials, id)
	return nil
}

func (f *fakeStore) ListInstructions(_ context.Context, active *bool) ([]models.BotInstruction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := []models.BotInstruction{}
	for _, b := range f.instructions {
		if active == nil || b.IsActive == *active {
			items = append(items, b)
		}
	}
	return items, nil
}

func (f *fakeStore) CreateInstruction(_ context.Context, b models.BotInstruction) (models.BotInstruction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b.InstructionID = uuid.NewString()
	f.instructions[b.InstructionID] = b
	return b, nil
}

func (f *fakeStore) UpdateInstruction(_ context.Context, b models.BotInstruction) (models.BotInstruction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.instructions[b.InstructionID]; !ok {
		return models.BotInstruction{}, store.ErrNotFound
	}
	f.instructions[b.InstructionID] = b
	return b, nil
}

func (f *fakeStore) DeleteInstruction(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.instructions[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.instructions, id)
	return nil
}

func (f *fakeStore) ListWebhooks(context.Context) ([]models.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Webhook{}, f.webhooks...), nil
}

func (f *fakeStore) CreateWebhook(_ context.Context, url string, events []string, secret string) (models.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := models.Webhook{ID: len(f.webhooks) + 1, URL: url, Events: events, Secret: secret, Enabled: true}
	f.webhooks = append(f.webhooks, h)
	return h, nil
}

func (f *fakeStore) DeleteWebhook(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, h := range f.webhooks {
		if h.ID == id {
			f.webhooks = append(f.webhooks[:i], f.webhooks[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type firedEvent struct {
	Type string
	Data interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []firedEvent
}

func (n *recordingNotifier) Fire(_ context.Context, eventType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, firedEvent{Type: eventType, Data: data})
}

type fakeTeam struct {
	members []identity.Member
	err     error
	invited []string
}

func (t *fakeTeam) ListMembers(context.Context) ([]identity.Member, error) { return t.members, t.err }

func (t *fakeTeam) Invite(_ context.Context, email, role string) (identity.Member, error) {
	if t.err != nil {
		return identity.Member{}, t.err
	}
	t.invited = append(t.invited, email)
	return identity.Member{ID: "inv_1", Email: email, Role: role, Status: identity.StatusInvited}, nil
}

func (t *fakeTeam) Update(_ context.Context, id, role, status string) (identity.Member, error) {
	if t.err != nil {
		return identity.Member{}, t.err
	}
	return identity.Member{ID: id, Role: role, Status: status}, nil
}

func (t *fakeTeam) Remove(context.Context, string) error { return t.err }

type fakeBlob struct {
	got []byte
	err error
}

func (b *fakeBlob) Put(_ context.Context, pathname, contentType string, size int64, body io.Reader) (blob.Object, error) {
	if b.err != nil {
		return blob.Object{}, b.err
	}
	data, _ := io.ReadAll(body)
	b.got = data
	return blob.Object{URL: "https://cdn.example.com/" + pathname, Pathname: pathname, ContentType: contentType, Size: size}, nil
}

type fakeAI struct {
	err error
}

func (a *fakeAI) AnalyzeHair(context.Context, string) (vision.HairAnalysis, error) {
	return vision.HairAnalysis{HairType: "curly", Porosity: "high", Concerns: []string{"frizz"}, Recommendations: []string{}, Confidence: 0.9}, a.err
}

func (a *fakeAI) ExtractProduct(_ context.Context, text string) (vision.ProductDraft, error) {
	return vision.ProductDraft{ProductName: text, Ingredients: []string{}, HairTypes: []string{}}, a.err
}

type fakeLimiter struct {
	allow    bool
	err      error
	released int
}

func (l *fakeLimiter) Allow(context.Context, string, string) (bool, error)   { return l.allow, l.err }
func (l *fakeLimiter) Acquire(context.Context, string, string) (bool, error) { return l.allow, l.err }
func (l *fakeLimiter) Release(context.Context, string, string)               { l.released++ }

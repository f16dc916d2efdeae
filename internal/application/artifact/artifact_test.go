package artifact

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidassist-api/internal/application/poller"
	"vidassist-api/internal/domain/entity"
	apperrors "vidassist-api/pkg/errors"
)

type fakeEntitlements struct {
	enabled map[entity.Feature]bool
}

func (f *fakeEntitlements) CheckLimit(context.Context, string, entity.Feature) (bool, error) {
	return true, nil
}

func (f *fakeEntitlements) IsEnabled(_ context.Context, _ string, feature entity.Feature) (bool, error) {
	return f.enabled[feature], nil
}

type countingUsage struct {
	mu  sync.Mutex
	ids []string
}

func (c *countingUsage) RecordUsage(_ context.Context, _ string, _ entity.Feature, resourceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, resourceID)
	return nil
}

type memTitles struct {
	mu   sync.Mutex
	rows map[entity.ResourceKey]*entity.Title
}

func (m *memTitles) Get(_ context.Context, key entity.ResourceKey) (*entity.Title, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[key], nil
}

func (m *memTitles) InsertIfAbsent(_ context.Context, key entity.ResourceKey, t *entity.Title) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[key]; ok {
		return false, nil
	}
	m.rows[key] = t
	return true, nil
}

func (m *memTitles) ListByVideo(_ context.Context, ownerID, videoID string) ([]*entity.Title, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Title
	for _, t := range m.rows {
		if t.OwnerID == ownerID && t.VideoID == videoID {
			out = append(out, t)
		}
	}
	return out, nil
}

type memImages struct {
	mu   sync.Mutex
	rows map[entity.ResourceKey]*entity.Image
}

func (m *memImages) Get(_ context.Context, key entity.ResourceKey) (*entity.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.rows[key]
	if !ok {
		return nil, nil
	}
	cp := *img
	return &cp, nil
}

func (m *memImages) InsertIfAbsent(_ context.Context, key entity.ResourceKey, img *entity.Image) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[key]; ok {
		return false, nil
	}
	cp := *img
	m.rows[key] = &cp
	return true, nil
}

func (m *memImages) ListByVideo(context.Context, string, string) ([]*entity.Image, error) {
	return nil, nil
}

func (m *memImages) SetURL(_ context.Context, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, img := range m.rows {
		if img.ID == id {
			img.URL = &url
		}
	}
	return nil
}

type fakeGenerator struct {
	prompt string
	reply  string
	err    error
}

func (f *fakeGenerator) GenerateText(_ context.Context, _, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

type fakeImageProvider struct {
	prompt string
	err    error
}

func (f *fakeImageProvider) GenerateImage(_ context.Context, prompt string) ([]byte, error) {
	f.prompt = prompt
	return []byte("png"), f.err
}

// slowObjects 前 pending 次 ResolveURL 返回空，模拟存储侧异步生成 URL
type slowObjects struct {
	pending  int32
	resolves atomic.Int32
}

func (s *slowObjects) Upload(context.Context, []byte, string) (string, error) {
	return "thumbnails/abc.png", nil
}

func (s *slowObjects) ResolveURL(_ context.Context, ref string) (string, error) {
	if s.resolves.Add(1) <= s.pending {
		return "", nil
	}
	return "https://cdn.example.com/" + ref, nil
}

func TestTitleService_Generate(t *testing.T) {
	titles := &memTitles{rows: map[entity.ResourceKey]*entity.Title{}}
	usage := &countingUsage{}
	gen := &fakeGenerator{reply: "\"10 Go Tricks You Missed\"\nextra line"}
	ent := &fakeEntitlements{enabled: map[entity.Feature]bool{entity.FeatureTitleGeneration: true}}
	svc := NewTitleService(titles, ent, usage, gen)

	details := &entity.VideoDetails{Title: "Go tips", ChannelTitle: "Gophers", PublishedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}
	title, err := svc.Generate(context.Background(), TitleRequest{OwnerID: "U1", VideoID: "V1", Details: details})
	require.NoError(t, err)
	assert.Equal(t, "10 Go Tricks You Missed", title.Title)
	assert.Contains(t, gen.prompt, `Make it different from: "Go tips"`)
	assert.Contains(t, gen.prompt, "User style preference: Craft an engaging")

	second, err := svc.Generate(context.Background(), TitleRequest{OwnerID: "U1", VideoID: "V1", Instructions: "make it funny"})
	require.NoError(t, err)
	assert.NotEqual(t, title.ID, second.ID)

	require.Len(t, usage.ids, 2)
	assert.Equal(t, entity.ArtifactResourceID("V1", title.ID), usage.ids[0])

	listed, err := svc.List(context.Background(), "U1", "V1")
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestTitleService_DisabledAndProviderErrors(t *testing.T) {
	titles := &memTitles{rows: map[entity.ResourceKey]*entity.Title{}}
	usage := &countingUsage{}
	svc := NewTitleService(titles, &fakeEntitlements{}, usage, &fakeGenerator{reply: "x"})

	_, err := svc.Generate(context.Background(), TitleRequest{OwnerID: "U1", VideoID: "V1"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindFeatureDisabled))

	ent := &fakeEntitlements{enabled: map[entity.Feature]bool{entity.FeatureTitleGeneration: true}}
	svc = NewTitleService(titles, ent, usage, &fakeGenerator{err: errors.New("googleapi: Error 503: model is overloaded")})
	_, err = svc.Generate(context.Background(), TitleRequest{OwnerID: "U1", VideoID: "V1"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindProviderOverloaded))

	assert.Empty(t, usage.ids)
	assert.Empty(t, titles.rows)
}

func TestImageService_GenerateWaitsForURL(t *testing.T) {
	images := &memImages{rows: map[entity.ResourceKey]*entity.Image{}}
	usage := &countingUsage{}
	objects := &slowObjects{pending: 2}
	provider := &fakeImageProvider{}
	ent := &fakeEntitlements{enabled: map[entity.Feature]bool{entity.FeatureImageGeneration: true}}
	svc := NewImageService(images, ent, usage, provider, objects, poller.Config{Timeout: time.Second, Interval: 5 * time.Millisecond})

	img, err := svc.Generate(context.Background(), ImageRequest{
		OwnerID: "U1",
		VideoID: "V1",
		Prompt:  "  bold <b>title</b> see https://example.com/ref.png   now ",
	})
	require.NoError(t, err)
	require.NotNil(t, img.URL)
	assert.Equal(t, "https://cdn.example.com/thumbnails/abc.png", *img.URL)
	assert.Equal(t, "bold b title /b see now", provider.prompt)
	assert.Len(t, usage.ids, 1)

	stored, _ := images.Get(context.Background(), entity.NewResourceKey("U1", entity.ArtifactResourceID("V1", img.ID)))
	require.NotNil(t, stored.URL)
}

func TestImageService_TimeoutKeepsImage(t *testing.T) {
	images := &memImages{rows: map[entity.ResourceKey]*entity.Image{}}
	usage := &countingUsage{}
	objects := &slowObjects{pending: 1 << 30}
	ent := &fakeEntitlements{enabled: map[entity.Feature]bool{entity.FeatureImageGeneration: true}}
	svc := NewImageService(images, ent, usage, &fakeImageProvider{}, objects, poller.Config{Timeout: 30 * time.Millisecond, Interval: 5 * time.Millisecond})

	img, err := svc.Generate(context.Background(), ImageRequest{OwnerID: "U1", VideoID: "V1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindArtifactTimeout))
	require.NotNil(t, img)
	assert.Nil(t, img.URL)
	assert.Len(t, usage.ids, 1)
	assert.True(t, strings.HasPrefix(img.Prompt, "Design a cinematic"))
}

func TestImageService_ContentPolicy(t *testing.T) {
	images := &memImages{rows: map[entity.ResourceKey]*entity.Image{}}
	usage := &countingUsage{}
	ent := &fakeEntitlements{enabled: map[entity.Feature]bool{entity.FeatureImageGeneration: true}}
	provider := &fakeImageProvider{err: errors.New("400 Bad Request: Your request was rejected as a result of our safety system")}
	svc := NewImageService(images, ent, usage, provider, &slowObjects{}, poller.Config{})

	_, err := svc.Generate(context.Background(), ImageRequest{OwnerID: "U1", VideoID: "V1", Prompt: "x"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindContentPolicyViolation))
	assert.Empty(t, usage.ids)
}

func TestSanitizePrompt(t *testing.T) {
	assert.Equal(t, "", SanitizePrompt("  http://a.b/c  "))
	long := strings.Repeat("a", 1500)
	assert.Len(t, SanitizePrompt(long), maxImagePromptRunes)
}

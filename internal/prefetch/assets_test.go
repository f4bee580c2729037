package prefetch

import (
	"testing"

	"github.com/launchpath/flowkit/internal/models"
)

func TestScreenAssets_AllVariants(t *testing.T) {
	screen := &models.Screen{
		ID: "mixed",
		Content: []models.ContentBlock{
			{Kind: models.ContentImage, URL: "https://cdn.example/hero.png"},
			{Kind: models.ContentBackgroundImage, URL: "https://cdn.example/bg.jpg"},
			{Kind: models.ContentBackgroundVideo, URL: "https://cdn.example/bg.mp4"},
			{Kind: models.ContentList, Items: []models.ContentItem{
				{Label: "a", ImageURL: "https://cdn.example/a.png"},
				{Label: "b"}, // no image
			}},
			{Kind: models.ContentGrid, Items: []models.ContentItem{
				{Label: "c", ImageURL: "https://cdn.example/c.png"},
			}},
			{Kind: models.ContentText, Text: "welcome"},
			{Kind: models.ContentCustom},
			{Kind: models.ContentKind("future-variant")},
		},
	}

	refs := ScreenAssets(screen)
	if len(refs) != 5 {
		t.Fatalf("got %d asset refs, want 5: %+v", len(refs), refs)
	}

	videos := 0
	for _, ref := range refs {
		if ref.Kind == models.AssetKindVideo {
			videos++
		}
		if ref.URL == "" {
			t.Errorf("asset ref with empty URL: %+v", ref)
		}
	}
	if videos != 1 {
		t.Errorf("got %d video refs, want 1", videos)
	}
}

func TestScreenAssets_LocalAssetsFlag(t *testing.T) {
	screen := &models.Screen{
		ID:             "local",
		UseLocalAssets: true,
		Content:        []models.ContentBlock{{Kind: models.ContentImage, URL: "https://cdn.example/hero.png"}},
	}
	if refs := ScreenAssets(screen); len(refs) != 0 {
		t.Fatalf("local-assets screen should contribute nothing, got %+v", refs)
	}
	if refs := ScreenAssets(nil); refs != nil {
		t.Fatalf("nil screen should contribute nothing, got %+v", refs)
	}
}

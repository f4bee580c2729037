package prefetch

import "github.com/launchpath/flowkit/internal/models"

// ScreenAssets derives the remote assets a screen needs before display.
// The walk over content kinds is total: every variant is handled, and
// variants without remote media contribute nothing. Screens flagged to
// use local assets contribute nothing either, since their media ships in
// the application bundle.
func ScreenAssets(s *models.Screen) []models.AssetRef {
	if s == nil || s.UseLocalAssets {
		return nil
	}
	var refs []models.AssetRef
	for _, block := range s.Content {
		switch block.Kind {
		case models.ContentImage, models.ContentBackgroundImage:
			if block.URL != "" {
				refs = append(refs, models.AssetRef{Kind: models.AssetKindImage, URL: block.URL})
			}
		case models.ContentBackgroundVideo:
			if block.URL != "" {
				refs = append(refs, models.AssetRef{Kind: models.AssetKindVideo, URL: block.URL})
			}
		case models.ContentList, models.ContentGrid:
			for _, item := range block.Items {
				if item.ImageURL != "" {
					refs = append(refs, models.AssetRef{Kind: models.AssetKindImage, URL: item.ImageURL})
				}
			}
		case models.ContentText, models.ContentCustom:
			// No remote media.
		default:
			// Unknown kinds decode to no media.
		}
	}
	return refs
}

package lib

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolveUnique tests deduplication and resolution selection
func TestResolveUnique(t *testing.T) {
	t.Run("HighestResolutionWins", func(t *testing.T) {
		resolved := ResolveUnique([]string{
			cdnPhotoURL(photoIDa, 384),
			cdnPhotoURL(photoIDa, 1536),
			cdnPhotoURL(photoIDb, 768),
		})

		assert.Equal(t, []string{
			cdnPhotoURL(photoIDa, 1536),
			cdnPhotoURL(photoIDb, 768),
		}, resolved)
	})

	t.Run("FirstVariantAlreadyLargest", func(t *testing.T) {
		resolved := ResolveUnique([]string{
			cdnPhotoURL(photoIDa, 1536),
			cdnPhotoURL(photoIDa, 768),
			cdnPhotoURL(photoIDa, 192),
		})

		assert.Equal(t, []string{cdnPhotoURL(photoIDa, 1536)}, resolved)
	})

	t.Run("FirstOfEqualResolutionsWins", func(t *testing.T) {
		jpg := fmt.Sprintf("https://photos.zillowstatic.com/fp/%s-cc_ft_1536.jpg", photoIDa)
		webp := fmt.Sprintf("https://photos.zillowstatic.com/fp/%s-cc_ft_1536.webp", photoIDa)

		resolved := ResolveUnique([]string{jpg, webp})

		assert.Equal(t, []string{jpg}, resolved)
	})

	t.Run("OrderFollowsFirstAppearance", func(t *testing.T) {
		resolved := ResolveUnique([]string{
			cdnPhotoURL(photoIDb, 768),
			cdnPhotoURL(photoIDa, 1536),
			cdnPhotoURL(photoIDb, 1536),
		})

		// The group keeps its position from the first variant even when a
		// larger variant shows up later
		assert.Equal(t, []string{
			cdnPhotoURL(photoIDb, 1536),
			cdnPhotoURL(photoIDa, 1536),
		}, resolved)
	})

	t.Run("ExactDuplicatesCollapse", func(t *testing.T) {
		resolved := ResolveUnique([]string{
			"https://example.com/photos/front.jpg",
			"https://example.com/photos/front.jpg",
			"https://example.com/photos/front.jpg",
		})

		assert.Equal(t, []string{"https://example.com/photos/front.jpg"}, resolved)
	})

	t.Run("UnrelatedURLsPassThrough", func(t *testing.T) {
		urls := []string{
			"https://example.com/photos/front.jpg",
			"https://example.com/photos/kitchen.jpg",
		}

		assert.Equal(t, urls, ResolveUnique(urls))
	})

	t.Run("MixedCDNAndPlainURLs", func(t *testing.T) {
		plain := "https://example.com/photos/front.jpg"
		other := "https://example.com/photos/kitchen.jpg"

		resolved := ResolveUnique([]string{
			plain,
			cdnPhotoURL(photoIDa, 384),
			other,
			cdnPhotoURL(photoIDa, 1536),
		})

		assert.Equal(t, []string{
			plain,
			cdnPhotoURL(photoIDa, 1536),
			other,
		}, resolved)
	})

	t.Run("Idempotent", func(t *testing.T) {
		input := []string{
			cdnPhotoURL(photoIDa, 384),
			cdnPhotoURL(photoIDa, 1536),
			"https://example.com/photos/front.jpg",
			cdnPhotoURL(photoIDb, 768),
		}

		once := ResolveUnique(input)
		twice := ResolveUnique(once)

		assert.Equal(t, once, twice)
	})

	t.Run("EmptyInput", func(t *testing.T) {
		assert.Empty(t, ResolveUnique(nil))
		assert.Empty(t, ResolveUnique([]string{}))
	})
}

// TestPhotoIdentity tests asset identifier extraction
func TestPhotoIdentity(t *testing.T) {
	t.Run("JpgVariant", func(t *testing.T) {
		id, ok := photoIdentity(cdnPhotoURL(photoIDa, 1536))
		require.True(t, ok)
		assert.Equal(t, photoIDa, id)
	})

	t.Run("WebpVariant", func(t *testing.T) {
		id, ok := photoIdentity(fmt.Sprintf("https://photos.zillowstatic.com/fp/%s-cc_ft_768.webp", photoIDb))
		require.True(t, ok)
		assert.Equal(t, photoIDb, id)
	})

	t.Run("PngVariant", func(t *testing.T) {
		id, ok := photoIdentity(fmt.Sprintf("https://photos.zillowstatic.com/fp/%s-cc_ft_192.png", photoIDc))
		require.True(t, ok)
		assert.Equal(t, photoIDc, id)
	})

	t.Run("UnsupportedExtension", func(t *testing.T) {
		_, ok := photoIdentity(fmt.Sprintf("https://photos.zillowstatic.com/fp/%s-cc_ft_768.gif", photoIDa))
		assert.False(t, ok)
	})

	t.Run("ShortIdentifier", func(t *testing.T) {
		_, ok := photoIdentity("https://photos.zillowstatic.com/fp/abcdef-cc_ft_768.jpg")
		assert.False(t, ok)
	})

	t.Run("LongIdentifier", func(t *testing.T) {
		_, ok := photoIdentity(fmt.Sprintf("https://photos.zillowstatic.com/fp/%sf-cc_ft_768.jpg", photoIDa))
		assert.False(t, ok)
	})

	t.Run("UppercaseHexRejected", func(t *testing.T) {
		_, ok := photoIdentity("https://photos.zillowstatic.com/fp/0123456789ABCDEF0123456789ABCDEF-cc_ft_768.jpg")
		assert.False(t, ok)
	})

	t.Run("PlainURL", func(t *testing.T) {
		_, ok := photoIdentity("https://example.com/photos/front.jpg")
		assert.False(t, ok)
	})
}

// TestPhotoResolution tests resolution token extraction
func TestPhotoResolution(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected int
	}{
		{
			name:     "StandardToken",
			url:      cdnPhotoURL(photoIDa, 1536),
			expected: 1536,
		},
		{
			name:     "SmallToken",
			url:      cdnPhotoURL(photoIDa, 192),
			expected: 192,
		},
		{
			name:     "NoToken",
			url:      "https://example.com/photos/front.jpg",
			expected: 0,
		},
		{
			name:     "OverflowingTokenRanksLowest",
			url:      fmt.Sprintf("https://photos.zillowstatic.com/fp/%s-cc_ft_99999999999999999999.jpg", photoIDa),
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, photoResolution(tt.url))
		})
	}
}

// BenchmarkResolveUnique measures dedup over a typical gallery
func BenchmarkResolveUnique(b *testing.B) {
	candidates := make([]string, 0, 120)
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("%032x", i)
		candidates = append(candidates,
			fmt.Sprintf("https://photos.zillowstatic.com/fp/%s-cc_ft_192.jpg", id),
			fmt.Sprintf("https://photos.zillowstatic.com/fp/%s-cc_ft_768.jpg", id),
			fmt.Sprintf("https://photos.zillowstatic.com/fp/%s-cc_ft_1536.jpg", id),
		)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ResolveUnique(candidates)
	}
}

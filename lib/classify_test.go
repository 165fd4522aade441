package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIsImageReference tests the image reference classifier
func TestIsImageReference(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		expected  bool
	}{
		{
			name:      "PhotoCDNImage",
			candidate: "https://photos.zillowstatic.com/fp/0123456789abcdef0123456789abcdef-cc_ft_768.jpg",
			expected:  true,
		},
		{
			name:      "JpegExtension",
			candidate: "https://example.com/photo.jpeg",
			expected:  true,
		},
		{
			name:      "PngExtension",
			candidate: "https://example.com/photo.png",
			expected:  true,
		},
		{
			name:      "WebpExtension",
			candidate: "https://example.com/photo.webp",
			expected:  true,
		},
		{
			name:      "GifExtension",
			candidate: "https://example.com/photo.gif",
			expected:  true,
		},
		{
			name:      "BmpExtension",
			candidate: "https://example.com/photo.bmp",
			expected:  true,
		},
		{
			name:      "TiffExtension",
			candidate: "https://example.com/photo.tiff",
			expected:  true,
		},
		{
			name:      "UppercaseExtension",
			candidate: "https://EXAMPLE.com/PHOTO.JPG",
			expected:  true,
		},
		{
			name:      "ProtocolRelative",
			candidate: "//photos.zillowstatic.com/fp/abc.jpg",
			expected:  true,
		},
		{
			name:      "BarePathWithExtension",
			candidate: "/images/house.jpg",
			expected:  true,
		},
		{
			name:      "HTMLPage",
			candidate: "https://example.com/page.html",
			expected:  false,
		},
		{
			name:      "ExtensionEmbeddedInPath",
			candidate: "https://example.com/house.jpg.html",
			expected:  true,
		},
		{
			name:      "PhotoCDNNamespaceWithoutExtension",
			candidate: "https://photos.zillowstatic.com/fp/0123456789abcdef0123456789abcdef",
			expected:  true,
		},
		{
			name:      "PhotosSubdomainExtensionInQuery",
			candidate: "https://photos.example.com/render?file=house.jpg",
			expected:  true,
		},
		{
			name:      "ImagesSubdomainExtensionInQuery",
			candidate: "https://images.example.com/v?img=a.webp",
			expected:  true,
		},
		{
			name:      "PhotosSubdomainWithoutExtension",
			candidate: "https://photos.example.com/render?id=42",
			expected:  false,
		},
		{
			name:      "GenericHostExtensionOnlyInQuery",
			candidate: "https://cdn.example.com/render?file=house.jpg",
			expected:  false,
		},
		{
			name:      "StaticHostWithoutPhotoNamespace",
			candidate: "https://www.zillowstatic.com/static/logo",
			expected:  false,
		},
		{
			name:      "JavascriptScheme",
			candidate: "javascript:void(0)",
			expected:  false,
		},
		{
			name:      "DataURI",
			candidate: "data:image/png;base64,iVBORw0KGgo=",
			expected:  false,
		},
		{
			name:      "PathWithoutExtension",
			candidate: "/about",
			expected:  false,
		},
		{
			name:      "PlainWord",
			candidate: "hello",
			expected:  false,
		},
		{
			name:      "Empty",
			candidate: "",
			expected:  false,
		},
		{
			name:      "WhitespaceOnly",
			candidate: "   ",
			expected:  false,
		},
		{
			name:      "UnparseableWithExtension",
			candidate: "http://ex ample.com/a.jpg",
			expected:  true,
		},
		{
			name:      "UnparseableWithoutExtension",
			candidate: "http://bad host/page",
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsImageReference(tt.candidate))
		})
	}
}

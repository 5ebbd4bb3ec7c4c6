package segment

import (
	"regexp"
	"strings"
)

// Placeholder replaces image and figure markup in embedding text. The
// original image is recoverable through the chunk's Images metadata.
const Placeholder = "[Figure]"

// assetPrefix is the fixed asset-subfolder prefix an image source must
// carry to be treated as a local asset reference.
const assetPrefix = "pic/"

var (
	imageRefRe = regexp.MustCompile(`<(?:img|embed)\s[^>]*src="` + assetPrefix + `([^"]+)"`)
	imageTagRe = regexp.MustCompile(`<(?:img|embed)\s[^>]*/?>`)
	figureRe   = regexp.MustCompile(`(?s)<figure[^>]*>.*?</figure>`)
)

// extractImageRefs scans chunk text for <img> and <embed> tags whose src
// points into the asset folder and returns the referenced filenames,
// deduplicated in first-seen order and comma-joined. Returns "" when the
// text references no images.
func extractImageRefs(text string) string {
	var refs []string
	seen := make(map[string]bool)
	for _, m := range imageRefRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			refs = append(refs, name)
		}
	}
	return strings.Join(refs, ",")
}

// scrubFigures produces the embedding text: every img/embed tag and every
// <figure>...</figure> block collapses to the placeholder token so markup
// does not pollute the embedding.
func scrubFigures(text string) string {
	text = imageTagRe.ReplaceAllString(text, Placeholder)
	return figureRe.ReplaceAllString(text, Placeholder)
}

package session

// BannerKind names one of the mutually exclusive status banners.
type BannerKind string

const (
	BannerNone           BannerKind = ""
	BannerInvalidRequest BannerKind = "invalid-request"
	BannerNoPathFound    BannerKind = "no-path-found"
	BannerNeedBothPoints BannerKind = "select-start-and-end"
	BannerResult         BannerKind = "result"
)

// Banner is the status line. Cost is only set for BannerResult.
type Banner struct {
	Kind BannerKind `json:"kind"`
	Cost string     `json:"cost,omitempty"`
}

// ResultBanner returns the banner shown for a found route.
func ResultBanner(cost string) Banner {
	return Banner{Kind: BannerResult, Cost: cost}
}

// Visible reports whether the banner shows anything.
func (b Banner) Visible() bool {
	return b.Kind != BannerNone
}

// Text returns the banner message.
func (b Banner) Text() string {
	switch b.Kind {
	case BannerInvalidRequest:
		return "Invalid request"
	case BannerNoPathFound:
		return "No path found"
	case BannerNeedBothPoints:
		return "Please select a start and an end point"
	case BannerResult:
		return "costs: " + b.Cost
	default:
		return ""
	}
}

// BannerRenderer displays banners.
type BannerRenderer interface {
	ShowBanner(b Banner)
	HideBanner(kind BannerKind)
}

// NotificationPanel holds the single active banner.
type NotificationPanel struct {
	renderer BannerRenderer
	current  Banner
}

// NewNotificationPanel creates a panel with no banner shown.
func NewNotificationPanel(renderer BannerRenderer) *NotificationPanel {
	return &NotificationPanel{renderer: renderer}
}

// Show hides the active banner, then shows b.
func (p *NotificationPanel) Show(b Banner) {
	p.Clear()
	if !b.Visible() {
		return
	}
	p.renderer.ShowBanner(b)
	p.current = b
}

// Clear hides the active banner, if any.
func (p *NotificationPanel) Clear() {
	if !p.current.Visible() {
		return
	}
	p.renderer.HideBanner(p.current.Kind)
	p.current = Banner{}
}

// Current returns the active banner.
func (p *NotificationPanel) Current() Banner {
	return p.current
}

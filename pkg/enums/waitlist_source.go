package enums

// WaitlistSource tags where a signup came from. Free-form values are accepted;
// the constants cover the site's own forms.
type WaitlistSource string

const (
	WaitlistSourceDefault  WaitlistSource = "waitlist"
	WaitlistSourcePreOrder WaitlistSource = "pre-order"
	WaitlistSourceFooter   WaitlistSource = "footer"
	WaitlistSourceMobile   WaitlistSource = "mobile"
)

// String implements fmt.Stringer.
func (w WaitlistSource) String() string {
	return string(w)
}

// OrDefault falls back to WaitlistSourceDefault for blank values.
func (w WaitlistSource) OrDefault() WaitlistSource {
	if w == "" {
		return WaitlistSourceDefault
	}
	return w
}

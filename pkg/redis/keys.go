package redis

import "strings"

const keyNamespace = "damp"

// key joins non-empty parts under the damp: namespace.
func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string { return key("idempotency", scope, id) }

func (c *Client) RateLimitKey(scope string) string { return key("rate_limit", scope) }

func (c *Client) CartKey(cartID string) string { return key("cart", cartID) }

func (c *Client) CampaignKey(parts ...string) string {
	return key(append([]string{"campaign"}, parts...)...)
}

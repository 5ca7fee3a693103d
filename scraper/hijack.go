package scraper

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypes maps config names to Rod protocol resource types.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
}

// trackerHosts are analytics and ad hosts dropped when BlockAds is set.
var trackerHosts = map[string]struct{}{
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"hotjar.com":            {},
	"facebook.net":          {},
	"matomo.cloud":          {},
	"piwik.pro":             {},
	"cookiebot.com":         {},
	"consensu.org":          {},
}

// blockedSet resolves config names to protocol resource types, ignoring
// names it does not know.
func blockedSet(names []string) map[proto.NetworkResourceType]struct{} {
	set := make(map[proto.NetworkResourceType]struct{}, len(names))
	for _, name := range names {
		if rt, ok := resourceTypes[name]; ok {
			set[rt] = struct{}{}
		}
	}
	return set
}

// isTrackerHost checks host and each of its parent domains against trackerHosts.
func isTrackerHost(host string) bool {
	host = strings.ToLower(host)
	for {
		if _, ok := trackerHosts[host]; ok {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
	}
}

// setupHijack installs a request interceptor that fails blocked resource
// types and, optionally, tracker hosts. It returns nil when there is
// nothing to block; otherwise the caller must Stop the router.
func setupHijack(page *rod.Page, blockedTypes []string, blockAds bool) *rod.HijackRouter {
	blocked := blockedSet(blockedTypes)
	if len(blocked) == 0 && !blockAds {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, ok := blocked[ctx.Request.Type()]; ok {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		if blockAds {
			if u, err := url.Parse(ctx.Request.URL().String()); err == nil && isTrackerHost(u.Hostname()) {
				ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run blocks until router.Stop.
	go router.Run()

	return router
}

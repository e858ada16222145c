package signer

import "strconv"

// Header templates mimic the browsers the upstream expects. Update them here
// when the platform starts rejecting requests.

// PCHeaders returns the template for edith.xiaohongshu.com web API calls
func PCHeaders() map[string]string {
	return map[string]string{
		"authority":          "edith.xiaohongshu.com",
		"accept":             "application/json, text/plain, */*",
		"accept-language":    "zh-CN,zh;q=0.9,en;q=0.8,en-GB;q=0.7,en-US;q=0.6",
		"cache-control":      "no-cache",
		"content-type":       "application/json;charset=UTF-8",
		"origin":             "https://www.xiaohongshu.com",
		"pragma":             "no-cache",
		"referer":            "https://www.xiaohongshu.com/",
		"sec-ch-ua":          `"Not A(Brand";v="99", "Microsoft Edge";v="121", "Chromium";v="121"`,
		"sec-ch-ua-mobile":   "?0",
		"sec-ch-ua-platform": `"Windows"`,
		"sec-fetch-dest":     "empty",
		"sec-fetch-mode":     "cors",
		"sec-fetch-site":     "same-site",
		"user-agent":         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36 Edg/121.0.0.0",
		"x-b3-traceid":       "",
		"x-mns":              "unload",
		"x-s":                "",
		"x-s-common":         "",
		"x-t":                "",
		"x-xray-traceid":     "",
	}
}

// CreatorHeaders returns the template for creator platform calls
func CreatorHeaders() map[string]string {
	return map[string]string{
		"user-agent":         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36 Edg/138.0.0.0",
		"accept":             "application/json, text/plain, */*",
		"pragma":             "no-cache",
		"cache-control":      "no-cache",
		"sec-ch-ua-platform": `"Windows"`,
		"authorization":      "",
		"sec-ch-ua":          `"Not)A;Brand";v="8", "Chromium";v="138", "Microsoft Edge";v="138"`,
		"sec-ch-ua-mobile":   "?0",
		"x-t":                "",
		"x-s":                "",
		"origin":             "https://creator.xiaohongshu.com",
		"sec-fetch-site":     "same-site",
		"sec-fetch-mode":     "cors",
		"sec-fetch-dest":     "empty",
		"referer":            "https://creator.xiaohongshu.com/",
		"accept-language":    "zh-CN,zh;q=0.9,en;q=0.8,en-GB;q=0.7,en-US;q=0.6",
		"priority":           "u=1, i",
	}
}

// PageHeaders returns the template for document navigations, used for media
// downloads and short link resolution
func PageHeaders() map[string]string {
	return map[string]string{
		"authority":                 "www.xiaohongshu.com",
		"accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
		"accept-language":           "zh-CN,zh;q=0.9",
		"cache-control":             "no-cache",
		"pragma":                    "no-cache",
		"referer":                   "https://www.xiaohongshu.com/",
		"sec-ch-ua":                 `"Chromium";v="122", "Not(A:Brand";v="24", "Google Chrome";v="122"`,
		"sec-ch-ua-mobile":          "?0",
		"sec-ch-ua-platform":        `"Windows"`,
		"sec-fetch-dest":            "document",
		"sec-fetch-mode":            "navigate",
		"sec-fetch-site":            "same-origin",
		"sec-fetch-user":            "?1",
		"upgrade-insecure-requests": "1",
		"user-agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	}
}

// ApplyPC fills the signature and trace fields of a PC header template
func ApplyPC(headers map[string]string, sig Signature, tracer Tracer) {
	headers["x-s"] = sig.XS
	headers["x-t"] = strconv.FormatInt(sig.XT, 10)
	headers["x-s-common"] = sig.XSCommon
	if tracer != nil {
		headers["x-b3-traceid"] = tracer.B3TraceID()
		headers["x-xray-traceid"] = tracer.XrayTraceID()
	}
}

// ApplyCreator fills the signature fields of a creator header template
func ApplyCreator(headers map[string]string, sig Signature) {
	headers["x-s"] = sig.XS
	headers["x-t"] = strconv.FormatInt(sig.XT, 10)
}

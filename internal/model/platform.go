package model

// Platform 第三方社交平台
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformThreads   Platform = "threads"
)

// AllPlatforms 固定的平台遍历顺序，聚合时的“先遇到”即以此为准
var AllPlatforms = []Platform{
	PlatformFacebook,
	PlatformInstagram,
	PlatformTwitter,
	PlatformLinkedIn,
	PlatformThreads,
}

func (p Platform) Valid() bool {
	for _, v := range AllPlatforms {
		if v == p {
			return true
		}
	}
	return false
}

func (p Platform) String() string {
	return string(p)
}

// ParsePlatform 解析平台名称，未知平台返回 false
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(s)
	return p, p.Valid()
}

package hostfs

// Well-known host file locations, relative to Root.
const (
	EtcPasswdRel        = "etc/passwd"
	EtcShadowRel        = "etc/shadow"
	XSessionsRel        = "usr/share/xsessions"
	WaylandSessionsRel  = "usr/share/wayland-sessions"
	DmrcName            = ".dmrc"
	DefaultConfigPath   = "/etc/lightdm/lumgreet.yaml"
	DefaultLangDir      = "/usr/share/lumgreet/lang"
	DefaultSocketPath   = "/run/lumgreet/ui.sock"
	DefaultCacheSubdir  = ".cache/lumgreet"
	PreferenceFileName  = "state"
	BridgeTokenFileName = "ui.token"
)

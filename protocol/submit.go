package protocol

import "strings"

func NewSubmitEAGUID(name, eaGUID string) *Call {
	return NewCall(SubmitEAGUID, map[string]any{
		"name":    name,
		"ea_guid": eaGUID,
	})
}

// NewSubmitPB drops the port from ip, punkbuster reports "a.b.c.d:port".
func NewSubmitPB(name, pbGUID, ip string) *Call {
	host, _, _ := strings.Cut(ip, ":")
	return NewCall(SubmitPB, map[string]any{
		"name":    name,
		"pb_guid": pbGUID,
		"ip":      host,
	})
}

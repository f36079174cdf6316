package agency

import "regexp"

// Same pattern the host uses for "Player Guid Computed" lines.
var pbGUIDComputed = regexp.MustCompile(`(?i):[ ]+?Player Guid Computed[ ]+?(?P<guid>[A-Fa-f0-9]+)\(.*?\)[ ]+?\(slot #(?P<slotid>[0-9]+)\)[ ]+?(?P<ip>[0-9\.:]+)[ ]+?(?P<name>.*)`)

type pbIdentity struct {
	Name string
	GUID string
	IP   string
}

func parsePunkbusterGUID(line string) (pbIdentity, bool) {
	m := pbGUIDComputed.FindStringSubmatch(line)
	if m == nil {
		return pbIdentity{}, false
	}
	return pbIdentity{
		Name: m[pbGUIDComputed.SubexpIndex("name")],
		GUID: m[pbGUIDComputed.SubexpIndex("guid")],
		IP:   m[pbGUIDComputed.SubexpIndex("ip")],
	}, true
}

package device

import "fmt"

// ProfileName returns the label of an ignition profile slot as reported in
// Status.ActiveProfile.
func ProfileName(id int) string {
	if name, ok := profileNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Profile %d", id)
}

var profileNames = map[int]string{
	0: "Map 1",
	1: "Map 2",
	2: "Rain",
	3: "Street",
	4: "Sport",
	5: "Race",
	6: "Launch",
	7: "Limp",
}

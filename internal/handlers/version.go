package handlers

import "github.com/blang/semver/v4"

// compareVersion returns -1/0/1 comparing AgentVersion (declared in
// ping.go) against target, or an error if target does not parse as
// semver.
func compareVersion(target string) (int, error) {
	targetVer, err := semver.Parse(target)
	if err != nil {
		return 0, err
	}
	return AgentVersion.Compare(targetVer), nil
}

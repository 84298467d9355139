package ticket

import (
	"regexp"
	"strconv"
)

var prNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[Mm]erge pull request #(\d+)`),
	regexp.MustCompile(`\(#(\d+)\)`),
	regexp.MustCompile(`[Pp][Rr]\s*#(\d+)`),
}

// PRNumbersFromMessage finds pull request references in a commit message:
// merge commits, squash suffixes like "(#12)", and "PR #12".
func PRNumbersFromMessage(message string) []int {
	var out []int
	seen := map[int]struct{}{}
	for _, re := range prNumberPatterns {
		for _, m := range re.FindAllStringSubmatch(message, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= 0 {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

// LinkedPRNumber returns the first pull request referenced by message, or 0.
func LinkedPRNumber(message string) int {
	if nums := PRNumbersFromMessage(message); len(nums) > 0 {
		return nums[0]
	}
	return 0
}

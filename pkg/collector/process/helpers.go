package process

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/srodi/fanview/pkg/types"
)

// psTimeLayout matches the lstart column of ps under LC_ALL=C.
const psTimeLayout = "Mon Jan _2 15:04:05 2006"

// parsePSOutput reads `ps -o pid=,ppid=,uid=,rss=,lstart=,comm=` rows. rss is in KiB and
// lstart spans five fields. Malformed rows are skipped.
func parsePSOutput(out []byte, loc *time.Location) []types.ProcessRecord {
	var records []types.ProcessRecord
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil || pid <= 0 {
			continue
		}
		ppid, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		uid, err := strconv.Atoi(fields[2])
		if err != nil {
			uid = types.UnknownUID
		}
		rssKB, err := strconv.ParseUint(fields[3], 10, 64)
		if err != nil {
			rssKB = 0
		}
		started, err := time.ParseInLocation(psTimeLayout, strings.Join(fields[4:9], " "), loc)
		if err != nil {
			continue
		}
		exe := strings.Join(fields[9:], " ")
		records = append(records, types.ProcessRecord{
			PID:       pid,
			PPID:      ppid,
			StartTime: started,
			UID:       uid,
			RSSBytes:  rssKB * 1024,
			Name:      filepath.Base(exe),
			Exe:       exe,
			Cmdline:   exe,
		})
	}
	return records
}

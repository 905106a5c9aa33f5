package cache

import "fmt"

func JobSnapshotKey(jobID string) string {
	return fmt.Sprintf("job:snapshot:%s", jobID)
}

// Scans stored sessions for undecodable or inconsistent records and
// optionally deletes them. Run against a live store after schema changes
// or suspected bad writes:
//
//	REDIS_URL=redis://localhost:6379 go run scripts/check-session-data.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/gamemaster-api/internal/entities"
)

const campaignIndexPrefix = "session:campaign:"

func main() {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal("Failed to parse Redis URL:", err)
	}

	client := redis.NewClient(opt)
	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	fmt.Println("Connected to Redis:", redisURL)
	fmt.Println("Scanning session records...")

	iter := client.Scan(ctx, 0, "session:*", 0).Iterator()

	var badKeys []string
	var checkedCount int

	for iter.Next(ctx) {
		key := iter.Val()

		// Campaign index sets share the prefix but hold IDs, not JSON
		if strings.HasPrefix(key, campaignIndexPrefix) {
			continue
		}
		checkedCount++

		data, err := client.Get(ctx, key).Result()
		if err != nil {
			fmt.Printf("Error reading %s: %v\n", key, err)
			continue
		}

		var sess entities.Session
		if err := json.Unmarshal([]byte(data), &sess); err != nil {
			fmt.Printf("✗ Undecodable JSON in %s\n", key)
			badKeys = append(badKeys, key)
			continue
		}

		if reason := validate(key, &sess); reason != "" {
			fmt.Printf("✗ %s: %s\n", key, reason)
			badKeys = append(badKeys, key)
			continue
		}

		// A session should be listed under its campaign
		member, err := client.SIsMember(ctx, campaignIndexPrefix+sess.CampaignID, sess.ID).Result()
		if err == nil && !member {
			fmt.Printf("! %s: missing from campaign index %s (re-adding)\n", key, sess.CampaignID)
			client.SAdd(ctx, campaignIndexPrefix+sess.CampaignID, sess.ID)
		}
	}

	if err := iter.Err(); err != nil {
		log.Fatal("Error during scan:", err)
	}

	fmt.Printf("\nChecked %d sessions, found %d bad records\n", checkedCount, len(badKeys))

	if len(badKeys) == 0 {
		fmt.Println("No bad records found!")
		return
	}

	fmt.Println("\nBad keys:")
	for _, key := range badKeys {
		fmt.Printf("  - %s\n", key)
	}

	fmt.Print("\nDo you want to DELETE these records? (yes/no): ")
	var response string
	fmt.Scanln(&response)

	if response == "yes" {
		for _, key := range badKeys {
			if err := client.Del(ctx, key).Err(); err != nil {
				fmt.Printf("Failed to delete %s: %v\n", key, err)
			} else {
				fmt.Printf("Deleted %s\n", key)
			}
		}
		fmt.Println("\nCleanup complete!")
	} else {
		fmt.Println("Aborted - no changes made")
	}
}

func validate(key string, sess *entities.Session) string {
	if sess.ID == "" {
		return "missing session ID"
	}
	if "session:"+sess.ID != key {
		return fmt.Sprintf("ID %q does not match key", sess.ID)
	}
	if sess.CampaignID == "" {
		return "missing campaign ID"
	}
	if !sess.Status.IsValid() {
		return fmt.Sprintf("unknown status %q", sess.Status)
	}
	if sess.Version < 1 {
		return fmt.Sprintf("version %d below 1", sess.Version)
	}
	if sess.Combat != nil && sess.Combat.Active {
		if len(sess.Combat.Order) == 0 {
			return "active combat with empty initiative order"
		}
		if sess.Combat.TurnIndex < 0 || int(sess.Combat.TurnIndex) >= len(sess.Combat.Order) {
			return fmt.Sprintf("turn index %d outside order of %d",
				sess.Combat.TurnIndex, len(sess.Combat.Order))
		}
	}
	return ""
}

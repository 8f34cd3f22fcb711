package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/BillFoxHQ/BillFox/internal/pkg/cache"
	"github.com/BillFoxHQ/BillFox/internal/pkg/database"
)

const (
	bundleRepairsKey = "bundle:counters:repairs"
	bundleDryRunsKey = "bundle:counters:dry_runs"
)

// AddBundleRepair increments the pending repair counter for a bundle in Redis
func AddBundleRepair(bundleUUID string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, bundleRepairsKey, bundleUUID, 1).Err()
}

// AddBundleDryRun increments the pending dry-run counter for a bundle in Redis
func AddBundleDryRun(bundleUUID string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, bundleDryRunsKey, bundleUUID, 1).Err()
}

// FlushAll flushes pending repair counters to the database
func FlushAll() error {
	if err := flushHashToTable(bundleRepairsKey, "subscription_bundles", "repair_count"); err != nil {
		return err
	}
	return flushHashToTable(bundleDryRunsKey, "subscription_bundles", "dry_run_count")
}

// StartFlushLoop drains the pending counters to the database on a fixed
// interval until stop is closed.
func StartFlushLoop(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := FlushAll(); err != nil {
					log.Errorf("[Counter] flush failed: %v", err)
				}
			case <-stop:
				return
			}
		}
	}()
}

// flushHashToTable drains a Redis hash atomically and applies batched increments to the target table.
// Uses RENAME to a temporary key for atomic drain without losing in-flight increments.
func flushHashToTable(redisKey, table, column string) error {
	ctx := context.Background()
	rdb := cache.GetClient()

	// Atomically move the hash to a temp key for draining
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		// Some Redis libs return redis.Nil; treat as empty
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	// Collect uuids and increments; sort uuids for stable SQL
	type pair struct {
		uuid string
		inc  int64
	}
	pairs := make([]pair, 0, len(data))
	for k, v := range data {
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{uuid: k, inc: inc})
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].uuid < pairs[j].uuid })

	// Compose SQL
	// UPDATE <table> SET <column> = <column> + CASE uuid WHEN ? THEN ? ... END WHERE uuid IN ( ... )
	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("UPDATE ")
	builder.WriteString(table)
	builder.WriteString(" SET ")
	builder.WriteString(column)
	builder.WriteString(" = ")
	builder.WriteString(column)
	builder.WriteString(" + CASE uuid ")
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.uuid, p.inc)
	}
	builder.WriteString(" END WHERE uuid IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.uuid)
	}
	builder.WriteString(")")

	sql := builder.String()
	db := database.GetDB()
	if err := db.Exec(sql, args...).Error; err != nil {
		return err
	}
	return nil
}

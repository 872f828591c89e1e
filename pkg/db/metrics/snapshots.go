package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	models "github.com/socialpulse/pulsex/pkg/db/models/metrics"
	"go.uber.org/zap"
)

// postSnapshotSelect collapses raw captures to the latest value per post.
const postSnapshotSelect = `
	SELECT
		owner_id,
		post_id,
		any(post_created_at)                 AS post_created_at,
		max(captured_at)                     AS captured_at,
		argMax(impressions, captured_at)     AS impressions,
		argMax(reactions, captured_at)       AS reactions,
		argMax(comments, captured_at)        AS comments,
		argMax(reposts, captured_at)         AS reposts,
		argMax(saves, captured_at)           AS saves,
		argMax(sends, captured_at)           AS sends,
		argMax(engagement_rate, captured_at) AS engagement_rate
	FROM %s`

const profileSnapshotSelect = `
	SELECT
		owner_id,
		max(captured_at)                        AS captured_at,
		argMax(followers, captured_at)          AS followers,
		argMax(profile_views, captured_at)      AS profile_views,
		argMax(search_appearances, captured_at) AS search_appearances
	FROM %s`

// RecentPostSnapshots returns the latest snapshot per post captured since the
// given time. Malformed rows (missing ids, zero timestamps) are dropped here,
// at the store boundary, so absent-vs-zero ambiguity never reaches the delta
// computer; the dropped count feeds the step's skipped tally.
func (db *DB) RecentPostSnapshots(ctx context.Context, since time.Time) ([]*models.PostSnapshot, int, error) {
	query := fmt.Sprintf(postSnapshotSelect+`
		WHERE captured_at >= ?
		GROUP BY owner_id, post_id
	`, db.table(PostSnapshotsTable))

	var rows []*models.PostSnapshot
	if err := db.Select(ctx, &rows, query, since); err != nil {
		return nil, 0, fmt.Errorf("recent post snapshots: %w", err)
	}
	return db.filterPosts(rows)
}

// RecentProfileSnapshots returns the latest snapshot per profile captured
// since the given time.
func (db *DB) RecentProfileSnapshots(ctx context.Context, since time.Time) ([]*models.ProfileSnapshot, int, error) {
	query := fmt.Sprintf(profileSnapshotSelect+`
		WHERE captured_at >= ?
		GROUP BY owner_id
	`, db.table(ProfileSnapshotsTable))

	var rows []*models.ProfileSnapshot
	if err := db.Select(ctx, &rows, query, since); err != nil {
		return nil, 0, fmt.Errorf("recent profile snapshots: %w", err)
	}
	return db.filterProfiles(rows)
}

// PostBackfillCandidates returns the latest snapshot of every post that has
// raw data but no non-zero daily delta yet. The guard checks for *non-zero*
// rows on purpose: an empty placeholder row must not suppress real backfill.
func (db *DB) PostBackfillCandidates(ctx context.Context) ([]*models.PostSnapshot, error) {
	query := fmt.Sprintf(postSnapshotSelect+`
		GROUP BY owner_id, post_id
		HAVING (owner_id, post_id) NOT IN (
			SELECT (owner_id, entity_id)
			FROM %s FINAL
			WHERE entity_type = '%s'
			  AND abs(impressions) + abs(reactions) + abs(comments) + abs(reposts) + abs(saves) + abs(sends) > 0
		)
	`, db.table(PostSnapshotsTable), db.table(DailyDeltasTable), models.EntityPost)

	var rows []*models.PostSnapshot
	if err := db.Select(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("post backfill candidates: %w", err)
	}
	valid, _, err := db.filterPosts(rows)
	return valid, err
}

// ProfileBackfillCandidates returns the latest snapshot of every profile with
// raw data but no non-zero daily delta yet.
func (db *DB) ProfileBackfillCandidates(ctx context.Context) ([]*models.ProfileSnapshot, error) {
	query := fmt.Sprintf(profileSnapshotSelect+`
		GROUP BY owner_id
		HAVING owner_id NOT IN (
			SELECT owner_id
			FROM %s FINAL
			WHERE entity_type = '%s'
			  AND abs(followers) + abs(profile_views) + abs(search_appearances) > 0
		)
	`, db.table(ProfileSnapshotsTable), db.table(DailyDeltasTable), models.EntityProfile)

	var rows []*models.ProfileSnapshot
	if err := db.Select(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("profile backfill candidates: %w", err)
	}
	valid, _, err := db.filterProfiles(rows)
	return valid, err
}

// PostsCreatedOn returns every post whose creation date falls on one of the
// given calendar dates. Used to find phase-boundary transition candidates.
func (db *DB) PostsCreatedOn(ctx context.Context, dates []time.Time) ([]models.PostRef, error) {
	if len(dates) == 0 {
		return nil, nil
	}

	list := make([]string, 0, len(dates))
	for _, d := range dates {
		list = append(list, fmt.Sprintf("toDate('%s')", formatDate(d)))
	}

	query := fmt.Sprintf(`
		SELECT owner_id, post_id, any(post_created_at) AS post_created_at
		FROM %s
		WHERE toDate(post_created_at) IN (%s)
		GROUP BY owner_id, post_id
	`, db.table(PostSnapshotsTable), strings.Join(list, ", "))

	var rows []models.PostRef
	if err := db.Select(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("posts created on: %w", err)
	}
	return rows, nil
}

func (db *DB) filterPosts(rows []*models.PostSnapshot) ([]*models.PostSnapshot, int, error) {
	valid := rows[:0]
	dropped := 0
	for _, row := range rows {
		if !row.Valid() {
			dropped++
			db.Logger.Warn("Dropping malformed post snapshot",
				zap.String("owner_id", row.OwnerID),
				zap.String("post_id", row.PostID))
			continue
		}
		valid = append(valid, row)
	}
	return valid, dropped, nil
}

func (db *DB) filterProfiles(rows []*models.ProfileSnapshot) ([]*models.ProfileSnapshot, int, error) {
	valid := rows[:0]
	dropped := 0
	for _, row := range rows {
		if !row.Valid() {
			dropped++
			db.Logger.Warn("Dropping malformed profile snapshot", zap.String("owner_id", row.OwnerID))
			continue
		}
		valid = append(valid, row)
	}
	return valid, dropped, nil
}

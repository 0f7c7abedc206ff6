package mysql

const createStatsHistorySQL = `
CREATE TABLE IF NOT EXISTS stats_history (
  id               BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
  cycle_id         CHAR(36)        NOT NULL,
  taken_at         DATETIME(3)     NOT NULL,
  total_reviews    INT             NOT NULL DEFAULT 0,
  replied_reviews  INT             NOT NULL DEFAULT 0,
  pending_reviews  INT             NOT NULL DEFAULT 0,
  positive_reviews INT             NOT NULL DEFAULT 0,
  negative_reviews INT             NOT NULL DEFAULT 0,
  neutral_reviews  INT             NOT NULL DEFAULT 0,
  created_at       TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (id),
  UNIQUE KEY uq_stats_history_cycle (cycle_id),
  KEY idx_stats_history_taken (taken_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
`

// A cycle id is recorded once; a replayed cycle keeps the first row.
const insertStatsSQL = `
INSERT INTO stats_history
  (cycle_id, taken_at, total_reviews, replied_reviews, pending_reviews,
   positive_reviews, negative_reviews, neutral_reviews)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  cycle_id = cycle_id
`

const recentStatsSQL = `
SELECT cycle_id, taken_at, total_reviews, replied_reviews, pending_reviews,
       positive_reviews, negative_reviews, neutral_reviews
FROM stats_history
ORDER BY taken_at DESC, id DESC
LIMIT ?
`

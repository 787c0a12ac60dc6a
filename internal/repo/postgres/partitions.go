package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"gorm.io/gorm"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
)

// PartitionAdmin manages the quarterly range partitions of vehicle_events.
type PartitionAdmin struct {
	db *gorm.DB
}

func NewPartitionAdmin(db *gorm.DB) *PartitionAdmin {
	return &PartitionAdmin{db: db}
}

var partitionNameRE = regexp.MustCompile(`^vehicle_events_\d{4}_q[1-4]$`)

// PartitionName returns the table name for a year and quarter, e.g.
// vehicle_events_2025_q3.
func PartitionName(year, quarter int) string {
	return fmt.Sprintf("vehicle_events_%d_q%d", year, quarter)
}

// QuarterOf maps a timestamp to its calendar year and quarter.
func QuarterOf(t time.Time) (year, quarter int) {
	t = t.UTC()
	return t.Year(), (int(t.Month())-1)/3 + 1
}

// QuarterBounds returns the half-open [from, to) range of a quarter.
func QuarterBounds(year, quarter int) (from, to time.Time) {
	startMonth := time.Month((quarter-1)*3 + 1)
	from = time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	to = from.AddDate(0, 3, 0)
	return from, to
}

func nextQuarter(year, quarter int) (int, int) {
	if quarter == 4 {
		return year + 1, 1
	}
	return year, quarter + 1
}

func validQuarter(year, quarter int) error {
	if quarter < 1 || quarter > 4 {
		return fmt.Errorf("%w: quarter %d out of range", domain.ErrInvalidArgument, quarter)
	}
	if year < 2000 || year > 2200 {
		return fmt.Errorf("%w: year %d out of range", domain.ErrInvalidArgument, year)
	}
	return nil
}

// EnsurePartition attaches the partition for the quarter, creating it when
// missing. Safe to call repeatedly.
func (a *PartitionAdmin) EnsurePartition(ctx context.Context, year, quarter int) error {
	if err := validQuarter(year, quarter); err != nil {
		return err
	}
	from, to := QuarterBounds(year, quarter)
	stmt := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s PARTITION OF vehicle_events FOR VALUES FROM ('%s') TO ('%s')`,
		PartitionName(year, quarter),
		from.Format("2006-01-02"),
		to.Format("2006-01-02"),
	)
	if err := a.db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("ensure partition %s: %w", PartitionName(year, quarter), err)
	}
	return nil
}

// DropPartition detaches and drops a quarter's partition, events included.
// Intended for retention cleanup of old quarters only.
func (a *PartitionAdmin) DropPartition(ctx context.Context, year, quarter int) error {
	if err := validQuarter(year, quarter); err != nil {
		return err
	}
	name := PartitionName(year, quarter)
	if !partitionNameRE.MatchString(name) {
		return fmt.Errorf("%w: malformed partition name %s", domain.ErrInvalidArgument, name)
	}
	if err := a.db.WithContext(ctx).Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, name)).Error; err != nil {
		return fmt.Errorf("drop partition %s: %w", name, err)
	}
	return nil
}

// ListPartitions returns the attached vehicle_events partitions, sorted by
// name.
func (a *PartitionAdmin) ListPartitions(ctx context.Context) ([]string, error) {
	var names []string
	err := a.db.WithContext(ctx).Raw(
		`SELECT tablename FROM pg_tables WHERE schemaname = current_schema() AND tablename LIKE 'vehicle_events_%' ORDER BY tablename`,
	).Scan(&names).Error
	if err != nil {
		return nil, err
	}
	out := names[:0]
	for _, name := range names {
		if partitionNameRE.MatchString(name) {
			out = append(out, name)
		}
	}
	return out, nil
}

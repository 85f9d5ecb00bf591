package cache

import (
	"context"
	"log/slog"
)

// SafeInvalidatePattern invalidates a pattern, logging instead of failing
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes cache keys, logging instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// CourseKey is the cache key of a course row
func CourseKey(courseID string) string {
	return "id:" + courseID
}

// DashboardKey is the cache key of one caller's dashboard
func DashboardKey(email string) string {
	return "email:" + email
}

// InvalidateCourseCache drops the cached course row
func InvalidateCourseCache(ctx context.Context, cm *CacheManager, courseID string) {
	SafeDelete(ctx, cm.Course, CourseKey(courseID))
}

// InvalidateDashboards drops every cached dashboard. Used after writes that
// change counts visible on several dashboards (grades, enrollments, courses).
func InvalidateDashboards(ctx context.Context, cm *CacheManager) {
	SafeInvalidatePattern(ctx, cm.Dashboard, "*")
}

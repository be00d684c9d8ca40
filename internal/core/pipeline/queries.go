package pipeline

// Aggregation SQL. Every query exposes the same metric columns so sheets on
// different scales stay comparable: Total_Files, MP3_Files, JPG_Files,
// Total_Size_MB. The period key column is aliased per scale and matches the
// calendar's period-key format (daily dates, ISO weeks, year-months).
//
// The %s slot takes the filter-flag predicates. Predicates come from a fixed
// map keyed by recognized flags; request values never reach the SQL text.

const dailyCountsSQL = `
SELECT
    to_char(captured_on, 'YYYY-MM-DD')                          AS "Date",
    COUNT(*)                                                    AS "Total_Files",
    COUNT(*) FILTER (WHERE file_type = 'mp3')                   AS "MP3_Files",
    COUNT(*) FILTER (WHERE file_type = 'jpg')                   AS "JPG_Files",
    COALESCE(SUM(size_bytes), 0)::numeric / (1024 * 1024)       AS "Total_Size_MB"
FROM media_records
WHERE captured_on BETWEEN $1 AND $2 %s
GROUP BY 1
ORDER BY 1`

const dailyCountsCollectionOnlySQL = `
SELECT
    to_char(captured_on, 'YYYY-MM-DD')                          AS "Date",
    COUNT(*)                                                    AS "Total_Files",
    COUNT(*) FILTER (WHERE file_type = 'mp3')                   AS "MP3_Files",
    COUNT(*) FILTER (WHERE file_type = 'jpg')                   AS "JPG_Files",
    COALESCE(SUM(size_bytes), 0)::numeric / (1024 * 1024)       AS "Total_Size_MB"
FROM media_records
WHERE captured_on BETWEEN $1 AND $2 AND collection_day %s
GROUP BY 1
ORDER BY 1`

const weeklyCountsSQL = `
SELECT
    to_char(captured_on, 'IYYY-"W"IW')                          AS "Week",
    COUNT(*)                                                    AS "Total_Files",
    COUNT(*) FILTER (WHERE file_type = 'mp3')                   AS "MP3_Files",
    COUNT(*) FILTER (WHERE file_type = 'jpg')                   AS "JPG_Files",
    COALESCE(SUM(size_bytes), 0)::numeric / (1024 * 1024)       AS "Total_Size_MB"
FROM media_records
WHERE captured_on BETWEEN $1 AND $2 %s
GROUP BY 1
ORDER BY 1`

const monthlyCountsSQL = `
SELECT
    to_char(captured_on, 'YYYY-MM')                             AS "Month",
    COUNT(*)                                                    AS "Total_Files",
    COUNT(*) FILTER (WHERE file_type = 'mp3')                   AS "MP3_Files",
    COUNT(*) FILTER (WHERE file_type = 'jpg')                   AS "JPG_Files",
    COALESCE(SUM(size_bytes), 0)::numeric / (1024 * 1024)       AS "Total_Size_MB"
FROM media_records
WHERE captured_on BETWEEN $1 AND $2 %s
GROUP BY 1
ORDER BY 1`

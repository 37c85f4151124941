package callsRepository

const (
	queryCreateCall = `
		INSERT INTO calls (
			id,
			call_sid,
			caller_number,
			customer_name,
			account_number,
			issue_type,
			issue_description,
			priority,
			full_transcript,
			consent_type,
			consent_status,
			call_date,
			recording_url,
			verified,
			status,
			created_at,
			completed_at
		) VALUES (
			:id,
			:call_sid,
			:caller_number,
			:customer_name,
			:account_number,
			:issue_type,
			:issue_description,
			:priority,
			:full_transcript,
			:consent_type,
			:consent_status,
			:call_date,
			:recording_url,
			:verified,
			:status,
			:created_at,
			:completed_at
		)
	`

	queryGetCallByID = `
		SELECT
			id,
			call_sid,
			caller_number,
			customer_name,
			account_number,
			issue_type,
			issue_description,
			priority,
			full_transcript,
			consent_type,
			consent_status,
			call_date,
			recording_url,
			verified,
			status,
			created_at,
			completed_at
		FROM calls
		WHERE id = :id OR call_sid = :id
		LIMIT 1
	`

	queryListCalls = `
		SELECT
			id,
			call_sid,
			caller_number,
			customer_name,
			account_number,
			issue_type,
			issue_description,
			priority,
			full_transcript,
			consent_type,
			consent_status,
			call_date,
			recording_url,
			verified,
			status,
			created_at,
			completed_at
		FROM calls
		ORDER BY created_at DESC
		LIMIT :limit OFFSET :offset
	`

	queryCountCalls = `
		SELECT COUNT(*) FROM calls
	`

	queryUpdateCallStatus = `
		UPDATE calls
		SET status = :status
		WHERE id = :id OR call_sid = :id
	`

	queryCountByPriority = `
		SELECT priority AS label, COUNT(*) AS total
		FROM calls
		GROUP BY priority
	`

	queryCountByIssueType = `
		SELECT issue_type AS label, COUNT(*) AS total
		FROM calls
		GROUP BY issue_type
	`

	queryGetExportableConsents = `
		SELECT
			account_number,
			caller_number AS phone_number,
			customer_name,
			consent_type,
			consent_status,
			created_at AS captured_at
		FROM calls
		WHERE
			account_number <> 'Unknown'
			AND caller_number <> 'Unknown'
			AND consent_type IS NOT NULL
			AND consent_status IS NOT NULL
		ORDER BY created_at DESC
	`
)

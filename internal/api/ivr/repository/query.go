package ivrRepository

const (
	queryCreateCode = `
		INSERT INTO one_time_codes (
			id,
			phone_number,
			code_hash,
			issued_at,
			consumed
		) VALUES (
			:id,
			:phone_number,
			:code_hash,
			:issued_at,
			false
		)`

	// Row lock keeps two concurrent verifications from both consuming.
	queryGetLatestCode = `
		SELECT
			id,
			phone_number,
			code_hash,
			issued_at,
			consumed,
			consumed_at
		FROM one_time_codes
		WHERE phone_number = :phone_number
		ORDER BY issued_at DESC
		LIMIT 1
		FOR UPDATE`

	queryConsumeCode = `
		UPDATE one_time_codes
		SET consumed = true,
			consumed_at = :consumed_at
		WHERE id = :id AND consumed = false`
)

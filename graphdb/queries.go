package graphdb

var schemaQueries = []string{
	"CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE",
	"CREATE CONSTRAINT quota_user IF NOT EXISTS FOR (q:Quota) REQUIRE q.user IS UNIQUE",
	"CREATE INDEX quota_last_reset IF NOT EXISTS FOR (q:Quota) ON (q.last_reset)",
}

const (
	// Ids arrive sorted so that concurrent units take the node locks in the same order.
	lockUsersQuery = `
		UNWIND $ids AS id
		MERGE (u:User {id: id})
		SET u._lock = true
	`

	followsExistsQuery = `
		OPTIONAL MATCH (:User {id: $from})-[e:FOLLOWS]->(:User {id: $to})
		RETURN count(e) > 0 AS found
	`

	requestedExistsQuery = `
		OPTIONAL MATCH (:User {id: $from})-[e:REQUESTED]->(:User {id: $to})
		RETURN count(e) > 0 AS found
	`

	// A follow replaces any request in the same direction.
	addFollowerQuery = `
		MERGE (f:User {id: $follower})
		MERGE (t:User {id: $target})
		WITH f, t
		OPTIONAL MATCH (f)-[p:REQUESTED]->(t)
		DELETE p
		WITH DISTINCT f, t
		MERGE (f)-[e:FOLLOWS]->(t)
		ON CREATE SET e.created_at = $now
	`

	addPendingQuery = `
		MERGE (r:User {id: $requester})
		MERGE (t:User {id: $target})
		WITH r, t
		WHERE NOT (r)-[:FOLLOWS]->(t)
		MERGE (r)-[e:REQUESTED]->(t)
		ON CREATE SET e.created_at = $now
	`

	removePendingQuery = `
		MATCH (:User {id: $requester})-[e:REQUESTED]->(:User {id: $target})
		DELETE e
	`

	// Anchored on the user's node so the lookup goes through the user_id constraint index.
	relationshipsQuery = `
		MATCH (u:User {id: $user})-[e:FOLLOWS|REQUESTED]-(:User)
		RETURN startNode(e).id AS follower, endNode(e).id AS followed, type(e) AS kind
	`

	ensureQuotaQuery = `
		MERGE (q:Quota {user: $user})
		ON CREATE SET q.remaining = $limit, q.daily_limit = $limit, q.last_reset = $now
		RETURN q.remaining AS remaining, q.daily_limit AS daily_limit, q.last_reset AS last_reset
	`

	readQuotaQuery = `
		MATCH (q:Quota {user: $user})
		RETURN q.remaining AS remaining, q.daily_limit AS daily_limit, q.last_reset AS last_reset
	`

	// The write to q._lock takes the node lock before remaining is compared.
	consumeQuotaQuery = `
		MERGE (q:Quota {user: $user})
		ON CREATE SET q.remaining = $limit, q.daily_limit = $limit, q.last_reset = $now
		SET q._lock = true
		WITH q
		WHERE q.remaining > 0
		SET q.remaining = q.remaining - 1
		RETURN q.remaining AS remaining
	`

	replenishQuotaQuery = `
		MERGE (q:Quota {user: $user})
		ON CREATE SET q.daily_limit = $limit
		SET q.remaining = q.daily_limit, q.last_reset = $now
	`

	replenishDueQuery = `
		MATCH (q:Quota)
		WHERE q.last_reset <= $cutoff
		SET q.remaining = q.daily_limit, q.last_reset = $now
		RETURN count(q) AS replenished
	`
)

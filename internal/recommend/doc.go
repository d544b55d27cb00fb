// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

/*
Package recommend ranks public pages for a user from the subscriptions of
people who share the user's pages.

# Pipeline

A request runs these stages in order:

 1. Resolve: parse and resolve the profile reference to a seed user.
 2. Scan: collect members of the seed's first K pages.
 3. Pool: pick candidates by how many scanned pages they belong to,
    adjusting a frequency threshold until the pool size is acceptable.
 4. Assemble: fetch each candidate's subscriptions and build a rating
    matrix. Earlier pages in a list get higher grades.
 5. Score: pearson correlation of each candidate row against the seed row,
    clamped to [0, 1].
 6. Rank: keep the strongest rows and score pages the seed does not follow
    by the similarity-weighted sum of grades.
 7. Refine (optional): rank the same pages by a low-rank reconstruction of
    the demeaned matrix.
 8. Output: drop pages with unknown or very large audiences and emit the
    top rows.

# Data Source

The engine talks to the social network only through [DataSource]. Optional
capabilities ([SessionKeeper], [UserDirectory], [PageDirectory],
[FatalClassifier]) are detected with type assertions.

# Determinism

Given identical data source answers the output is identical. Ties are
broken by ascending identifiers everywhere.

# Thread Safety

An [Engine] is safe for concurrent use; each request builds its own matrix.
*/
package recommend

// Package table reshapes query results into chart-ready rows.
//
// A [Result] is the normalized {columns, rows} shape produced by the query
// façade. The helpers here post-process results in memory:
//
//   - [BisectLeft], [BisectRight] and [Window] slice a sequence that is
//     already sorted by a comparator key.
//   - [GroupBy] and [Pivot] turn long-format (index, category, value) rows into
//     one wide record per index value.
//   - [Union] merges column lists in first-seen order.
//   - [NewIndex] and [Join] hash-join two row sets on a shared key.
//
// None of the helpers copy rows. Pivot allocates new records; Join and Nullify
// mutate the rows they are given.
package table

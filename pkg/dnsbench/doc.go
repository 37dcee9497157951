/*
Package dnsbench contains functionality for executing DNS64 load benchmarks.
The benchmark is represented by Benchmark struct that is used to set up the test as desired
and then execute it using Benchmark.Run. Benchmark.Run builds one Worker per configured thread,
each owning a disjoint range of query sequence numbers, its own UDP sockets and its own pending
table. Workers send AAAA queries in bursts anchored to absolute deadlines and correlate the
responses back to the outstanding queries. After all workers have finished, their immutable
ResultStats can be read and aggregated.
*/
package dnsbench

package reports

import "testing"

func TestAgingBucketFor(t *testing.T) {
	cases := []struct {
		daysOverdue int
		want        AgingBucket
	}{
		{-10, BucketCurrent},
		{0, BucketCurrent},
		{1, Bucket1To30},
		{30, Bucket1To30},
		{31, Bucket31To60},
		{48, Bucket31To60},
		{60, Bucket31To60},
		{61, Bucket61To90},
		{90, Bucket61To90},
		{91, BucketOver90},
		{400, BucketOver90},
	}
	for _, tc := range cases {
		if got := AgingBucketFor(tc.daysOverdue); got != tc.want {
			t.Fatalf("AgingBucketFor(%d) = %s, want %s", tc.daysOverdue, got, tc.want)
		}
	}
}

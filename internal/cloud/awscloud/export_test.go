package awscloud

var NewForTest = newForTest
